package rooms

import (
	"context"
	"fmt"
	"log"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twiliojwt "github.com/twilio/twilio-go/client/jwt"
	videoV1 "github.com/twilio/twilio-go/rest/video/v1"
)

// DefaultTokenTTL is the lifetime of a room access token in seconds
const DefaultTokenTTL = 3600

// RoomName returns the deterministic room name for a session
func RoomName(sessionID uuid.UUID) string {
	return "interview-" + sessionID.String()
}

// Identity returns the room identity for an owner
func Identity(ownerID string) string {
	return "user-" + ownerID
}

// TwilioOptions configures the Twilio provisioner
type TwilioOptions struct {
	AccountSID     string
	AuthToken      string
	APIKey         string
	APISecret      string
	StatusCallback string // optional room status webhook
}

type roomCreator interface {
	CreateRoom(params *videoV1.CreateRoomParams) (*videoV1.VideoV1Room, error)
}

// TwilioProvisioner creates Twilio Video group rooms and signs access tokens
type TwilioProvisioner struct {
	opts  TwilioOptions
	rooms roomCreator
	ttl   float64
}

// NewTwilioProvisioner creates a provisioner with a Twilio REST client
func NewTwilioProvisioner(opts TwilioOptions) (*TwilioProvisioner, error) {
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN must be set")
	}
	if opts.APIKey == "" || opts.APISecret == "" {
		return nil, fmt.Errorf("TWILIO_API_KEY and TWILIO_API_SECRET must be set")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: opts.AccountSID,
		Password: opts.AuthToken,
	})

	return &TwilioProvisioner{
		opts:  opts,
		rooms: client.VideoV1,
		ttl:   DefaultTokenTTL,
	}, nil
}

// ProvisionRoom creates the session's room and a token for its owner
func (p *TwilioProvisioner) ProvisionRoom(ctx context.Context, sessionID uuid.UUID, ownerID string) (interview.Room, error) {
	if err := ctx.Err(); err != nil {
		return interview.Room{}, err
	}

	name := RoomName(sessionID)

	params := &videoV1.CreateRoomParams{}
	params.SetUniqueName(name)
	params.SetType("group")
	params.SetRecordParticipantsOnConnect(true)
	if p.opts.StatusCallback != "" {
		params.SetStatusCallback(p.opts.StatusCallback)
		params.SetStatusCallbackMethod("POST")
	}

	room, err := p.rooms.CreateRoom(params)
	if err != nil {
		return interview.Room{}, fmt.Errorf("failed to create room: %w", err)
	}

	sid := ""
	if room != nil && room.Sid != nil {
		sid = *room.Sid
	}

	token, err := p.IssueToken(name, ownerID)
	if err != nil {
		return interview.Room{}, err
	}

	log.Printf("[ROOMS]: created room %s (%s)\n", name, sid)
	return interview.Room{Name: name, SID: sid, AccessToken: token}, nil
}

// IssueToken signs a video access token for the owner scoped to roomName
func (p *TwilioProvisioner) IssueToken(roomName, ownerID string) (string, error) {
	token := twiliojwt.CreateAccessToken(twiliojwt.AccessTokenParams{
		AccountSid:    p.opts.AccountSID,
		SigningKeySid: p.opts.APIKey,
		Secret:        p.opts.APISecret,
		Identity:      Identity(ownerID),
		Ttl:           p.ttl,
	})
	token.AddGrant(&twiliojwt.VideoGrant{Room: roomName})

	signed, err := token.ToJwt()
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// OfflineProvisioner names rooms without contacting a video provider. It is
// used when Twilio is not configured.
type OfflineProvisioner struct{}

// ProvisionRoom returns a room reference with no SID or token
func (OfflineProvisioner) ProvisionRoom(ctx context.Context, sessionID uuid.UUID, ownerID string) (interview.Room, error) {
	return interview.Room{Name: RoomName(sessionID)}, nil
}

// IssueToken returns an empty token
func (OfflineProvisioner) IssueToken(roomName, ownerID string) (string, error) {
	return "", nil
}
