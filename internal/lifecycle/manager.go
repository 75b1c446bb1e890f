package lifecycle

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	session_store "github.com/ethanbaker/interviewer/internal/stores/session"
	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
)

const (
	DefaultCompletionLease = 5 * time.Minute
	DefaultCompletionWait  = 30 * time.Second
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultDeliveryWindow  = time.Hour
)

// Options contains the collaborators and tunables of a Manager
type Options struct {
	Store  session_store.Store
	Ledger delivery_store.Ledger

	Rooms       RoomProvisioner
	Generator   QuestionGenerator // nil always uses the question bank
	Drafter     ReportDrafter     // nil always uses the fallback report
	Renderer    ReportRenderer // nil sends the report inline
	Sender      ReportSender   // nil disables delivery
	Transcriber Transcriber
	Normalizer  AudioNormalizer

	Bank      *QuestionBank
	Recipient string // hiring contact receiving every report

	CompletionLease time.Duration // age after which a completion claim counts as abandoned
	CompletionWait  time.Duration // how long a losing completion call waits for the holder
	PollInterval    time.Duration
	DeliveryWindow  time.Duration

	Now func() time.Time
}

// Manager runs the operations of the interview session lifecycle. It keeps no
// per-session state; every call reads and conditionally writes the store.
type Manager struct {
	store  session_store.Store
	ledger delivery_store.Ledger

	rooms       RoomProvisioner
	generator   QuestionGenerator
	drafter     ReportDrafter
	renderer    ReportRenderer
	sender      ReportSender
	transcriber Transcriber
	normalizer  AudioNormalizer

	bank      *QuestionBank
	recipient string

	lease  time.Duration
	wait   time.Duration
	poll   time.Duration
	window time.Duration
	now    func() time.Time
}

// Advance is the question shown after an advance or replay
type Advance struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	HasMore  bool   `json:"has_more"`
	Total    int    `json:"total"`
}

// NewManager creates a lifecycle manager
func NewManager(opts *Options) (*Manager, error) {
	if opts == nil || opts.Store == nil {
		return nil, fmt.Errorf("a valid store must be provided")
	}
	if opts.Rooms == nil {
		return nil, fmt.Errorf("a valid room provisioner must be provided")
	}

	m := &Manager{
		store:       opts.Store,
		ledger:      opts.Ledger,
		rooms:       opts.Rooms,
		generator:   opts.Generator,
		drafter:     opts.Drafter,
		renderer:    opts.Renderer,
		sender:      opts.Sender,
		transcriber: opts.Transcriber,
		normalizer:  opts.Normalizer,
		bank:        opts.Bank,
		recipient:   opts.Recipient,
		lease:       opts.CompletionLease,
		wait:        opts.CompletionWait,
		poll:        opts.PollInterval,
		window:      opts.DeliveryWindow,
		now:         opts.Now,
	}

	if m.ledger == nil {
		log.Println("[LIFECYCLE]: Warning, no delivery ledger provided, using in-memory ledger")
		m.ledger = delivery_store.NewInMemoryLedger()
	}
	if m.transcriber == nil {
		m.transcriber = transcription.NewAdapter(nil)
	}
	if m.normalizer == nil {
		m.normalizer = transcription.NewNormalizer("", "")
	}
	if m.bank == nil {
		m.bank = DefaultQuestionBank()
	}
	if m.lease <= 0 {
		m.lease = DefaultCompletionLease
	}
	if m.wait < 0 {
		m.wait = 0
	} else if m.wait == 0 {
		m.wait = DefaultCompletionWait
	}
	if m.poll <= 0 {
		m.poll = DefaultPollInterval
	}
	if m.window <= 0 {
		m.window = DefaultDeliveryWindow
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}

	return m, nil
}

// Create stores a scheduled session and provisions its room. When
// provisioning fails the session is left in error and returned alongside an
// error wrapping interview.ErrProvisioning.
func (m *Manager) Create(ctx context.Context, owner interview.Owner, questions []string) (*interview.Session, error) {
	source := interview.QuestionsProvided
	if len(questions) == 0 {
		questions = slices.Clone(m.bank.Questions)
		source = interview.QuestionsBank
	}

	return m.create(ctx, owner, questions, source)
}

// CreateFromResume creates a session whose questions are generated from
// resume text. Generation failures fall back to the question bank.
func (m *Manager) CreateFromResume(ctx context.Context, owner interview.Owner, resumeText string) (*interview.Session, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("%w: resume text cannot be empty", interview.ErrInvalidInput)
	}
	if strings.TrimSpace(owner.ID) == "" {
		return nil, fmt.Errorf("%w: owner id cannot be empty", interview.ErrInvalidInput)
	}

	questions, source := m.generateQuestions(ctx, resumeText)
	return m.create(ctx, owner, questions, source)
}

// generateQuestions asks the generator for questions, keeping only non-blank ones
func (m *Manager) generateQuestions(ctx context.Context, resumeText string) ([]string, string) {
	if m.generator == nil {
		log.Println("[LIFECYCLE]: no question generator configured, using question bank")
		return slices.Clone(m.bank.Questions), interview.QuestionsBank
	}

	generated, err := m.generator.GenerateQuestions(ctx, resumeText)
	if err != nil {
		log.Printf("[LIFECYCLE]: question generation failed, using question bank: %v\n", err)
		return slices.Clone(m.bank.Questions), interview.QuestionsBank
	}

	questions := make([]string, 0, len(generated))
	for _, q := range generated {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		log.Println("[LIFECYCLE]: question generator returned nothing, using question bank")
		return slices.Clone(m.bank.Questions), interview.QuestionsBank
	}

	return questions, interview.QuestionsGenerated
}

// create validates questions, stores the scheduled session and provisions its room
func (m *Manager) create(ctx context.Context, owner interview.Owner, questions []string, source string) (*interview.Session, error) {
	if strings.TrimSpace(owner.ID) == "" {
		return nil, fmt.Errorf("%w: owner id cannot be empty", interview.ErrInvalidInput)
	}

	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", interview.ErrInvalidInput, i)
		}
	}

	session := &interview.Session{
		ID:             uuid.New(),
		OwnerID:        owner.ID,
		CandidateName:  owner.Name,
		CandidateEmail: owner.Email,
		Status:         interview.StatusScheduled,
		Questions:      questions,
		QuestionSource: source,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	room, err := m.rooms.ProvisionRoom(ctx, session.ID, owner.ID)
	if err != nil {
		log.Printf("[LIFECYCLE]: provisioning failed for session %s: %v\n", session.ID, err)

		if markErr := m.store.MarkFailed(context.WithoutCancel(ctx), session.ID, err.Error()); markErr != nil {
			return nil, fmt.Errorf("failed to record provisioning failure: %w", markErr)
		}

		failed, getErr := m.store.GetSession(ctx, session.ID)
		if getErr != nil {
			failed = nil
		}
		return failed, fmt.Errorf("%w: %v", interview.ErrProvisioning, err)
	}

	if err := m.store.MarkProvisioned(ctx, session.ID, room); err != nil {
		return nil, err
	}

	log.Printf("[LIFECYCLE]: session %s ready in room %s\n", session.ID, room.Name)
	return m.store.GetSession(ctx, session.ID)
}

// GetSession returns the stored session
func (m *Manager) GetSession(ctx context.Context, sessionID uuid.UUID) (*interview.Session, error) {
	return m.store.GetSession(ctx, sessionID)
}

// AdvanceQuestion moves to the next question when isNewQuestion is set and
// otherwise replays the current one. The index never passes the number of
// questions, and reaching it does not complete the session.
func (m *Manager) AdvanceQuestion(ctx context.Context, sessionID uuid.UUID, isNewQuestion bool) (*Advance, error) {
	for {
		session, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if !isNewQuestion {
			if session.Status == interview.StatusScheduled || session.Status == interview.StatusError {
				return nil, fmt.Errorf("%w: no question to replay for a %s session", interview.ErrInvalidTransition, session.Status)
			}
			return advanceFor(session, session.CurrentQuestionIndex), nil
		}

		if _, err := interview.Transition(session.Status, interview.EventStarted); err != nil {
			return nil, err
		}

		from := session.CurrentQuestionIndex
		if from >= len(session.Questions) {
			return advanceFor(session, len(session.Questions)), nil
		}

		applied, err := m.store.AdvanceQuestion(ctx, sessionID, from, from+1)
		if err != nil {
			return nil, err
		}
		if applied {
			return advanceFor(session, from+1), nil
		}

		// Lost the compare-and-set to a concurrent advance; re-read and retry
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// IssueToken signs a fresh room access token for the session owner
func (m *Manager) IssueToken(ctx context.Context, sessionID uuid.UUID) (*interview.Room, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != interview.StatusReady && session.Status != interview.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot join a %s session", interview.ErrInvalidTransition, session.Status)
	}
	if session.RoomName == "" {
		return nil, fmt.Errorf("%w: session has no room", interview.ErrInvalidTransition)
	}

	token, err := m.rooms.IssueToken(session.RoomName, session.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interview.ErrProvisioning, err)
	}

	return &interview.Room{Name: session.RoomName, SID: session.RoomSID, AccessToken: token}, nil
}

// Recordings returns the stored responses of a session owned by ownerID.
// Sessions of other owners are reported as not found.
func (m *Manager) Recordings(ctx context.Context, sessionID uuid.UUID, ownerID string) ([]*interview.Response, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.OwnerID != ownerID {
		return nil, interview.ErrNotFound
	}

	return session.Responses, nil
}

// Instructions returns the candidate instructions
func (m *Manager) Instructions() Instructions {
	return m.bank.Instructions
}

// Questions returns a copy of the default question set
func (m *Manager) Questions() []string {
	return slices.Clone(m.bank.Questions)
}

// advanceFor builds the view of the question at index
func advanceFor(session *interview.Session, index int) *Advance {
	return &Advance{
		Index:    index,
		Question: session.Question(index),
		HasMore:  index < len(session.Questions),
		Total:    len(session.Questions),
	}
}
