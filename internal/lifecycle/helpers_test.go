package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethanbaker/interviewer/internal/delivery"
	"github.com/ethanbaker/interviewer/internal/report"
	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	session_store "github.com/ethanbaker/interviewer/internal/stores/session"
	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct {
	err error
}

func (f *fakeRooms) ProvisionRoom(ctx context.Context, sessionID uuid.UUID, ownerID string) (interview.Room, error) {
	if f.err != nil {
		return interview.Room{}, f.err
	}
	return interview.Room{Name: "interview-" + sessionID.String(), SID: "RM1", AccessToken: "token-" + ownerID}, nil
}

func (f *fakeRooms) IssueToken(roomName, ownerID string) (string, error) {
	return "reissued-" + ownerID, nil
}

type fakeGenerator struct {
	questions []string
	err       error
	resume    string
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, resumeText string) ([]string, error) {
	f.resume = resumeText
	return f.questions, f.err
}

type fakeDrafter struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeDrafter) DraftReport(ctx context.Context, pairs []interview.QA) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeRenderer struct {
	err   error
	calls atomic.Int32
}

func (f *fakeRenderer) RenderPDF(text string, meta report.Metadata) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

type fakeSender struct {
	err    error
	mu     sync.Mutex
	emails []delivery.Email
}

func (f *fakeSender) SendReport(ctx context.Context, email delivery.Email) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return true, nil
}

func (f *fakeSender) sent() []delivery.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery.Email(nil), f.emails...)
}

type fakeSpeech struct {
	text string
	err  error
}

func (f *fakeSpeech) SpeechToText(ctx context.Context, wav []byte) (string, error) {
	return f.text, f.err
}

// passthroughNormalizer returns the input unchanged
type passthroughNormalizer struct {
	err   error
	panic bool
}

func (p *passthroughNormalizer) Normalize(ctx context.Context, data []byte, format transcription.Format) ([]byte, error) {
	if p.panic {
		panic("decoder exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	return data, nil
}

type failingLedger struct{}

func (failingLedger) DeliveredSince(ctx context.Context, key delivery_store.Key, since time.Time) (bool, error) {
	return false, errors.New("ledger offline")
}

func (failingLedger) Record(ctx context.Context, entry delivery_store.Entry) error {
	return errors.New("ledger offline")
}

func (failingLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	return 0, errors.New("ledger offline")
}

// fixture bundles a manager with its fakes
type fixture struct {
	manager  *Manager
	store    *session_store.InMemoryStore
	ledger   *delivery_store.InMemoryLedger
	rooms    *fakeRooms
	drafter  *fakeDrafter
	renderer *fakeRenderer
	sender   *fakeSender
	speech   *fakeSpeech
}

func newFixture(t *testing.T, mutate ...func(opts *Options)) *fixture {
	t.Helper()

	f := &fixture{
		store:    session_store.NewInMemoryStore(),
		ledger:   delivery_store.NewInMemoryLedger(),
		rooms:    &fakeRooms{},
		drafter:  &fakeDrafter{text: "CANDIDATE OVERVIEW\nStrong communicator.\n\nSCORE: 8"},
		renderer: &fakeRenderer{},
		sender:   &fakeSender{},
		speech:   &fakeSpeech{text: "my answer"},
	}

	opts := &Options{
		Store:          f.store,
		Ledger:         f.ledger,
		Rooms:          f.rooms,
		Drafter:        f.drafter,
		Renderer:       f.renderer,
		Sender:         f.sender,
		Transcriber:    transcription.NewAdapter(f.speech),
		Normalizer:     &passthroughNormalizer{},
		Recipient:      "hiring@example.com",
		CompletionWait: 5 * time.Second,
		PollInterval:   5 * time.Millisecond,
	}
	for _, fn := range mutate {
		fn(opts)
	}

	manager, err := NewManager(opts)
	require.NoError(t, err)
	f.manager = manager

	return f
}

func (f *fixture) create(t *testing.T, questions ...string) *interview.Session {
	t.Helper()

	session, err := f.manager.Create(context.Background(), interview.Owner{ID: "owner-1", Name: "Ada Lovelace", Email: "ada@example.com"}, questions)
	require.NoError(t, err)
	return session
}

// answerAudio is any non-empty payload; the passthrough normalizer ignores its format
var answerAudio = []byte("RIFF....WAVEfake")
