package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
)

// InMemoryStore keeps sessions in process memory. Each method runs its
// condition check and write under one critical section, which gives it the
// same compare-and-set semantics as the SQL store's conditional updates.
type InMemoryStore struct {
	sessions map[uuid.UUID]*interview.Session
	nextID   uint
	mu       sync.Mutex
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[uuid.UUID]*interview.Session),
	}
}

// CreateSession inserts a new session
func (s *InMemoryStore) CreateSession(ctx context.Context, session *interview.Session) error {
	if session == nil || session.ID == uuid.Nil {
		return fmt.Errorf("session id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("failed to create session: duplicate id %s", session.ID)
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	// Store a copy to avoid shared references
	stored := session.Clone()
	stored.Responses = []*interview.Response{}
	s.sessions[session.ID] = stored

	return nil
}

// GetSession retrieves a copy of a session with its responses in capture order
func (s *InMemoryStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*interview.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, interview.ErrNotFound
	}

	return session.Clone(), nil
}

// MarkProvisioned moves a scheduled session to ready and records its room
func (s *InMemoryStore) MarkProvisioned(ctx context.Context, sessionID uuid.UUID, room interview.Room) error {
	return s.update(sessionID, func(session *interview.Session) error {
		if !slices.Contains(interview.SourcesOf(interview.EventProvisioned), session.Status) || session.RoomName != "" {
			return interview.ErrInvalidTransition
		}

		session.Status = interview.StatusReady
		session.RoomName = room.Name
		session.RoomSID = room.SID
		session.AccessToken = room.AccessToken
		return nil
	})
}

// MarkFailed moves a non-terminal session to error
func (s *InMemoryStore) MarkFailed(ctx context.Context, sessionID uuid.UUID, message string) error {
	return s.update(sessionID, func(session *interview.Session) error {
		if !slices.Contains(interview.SourcesOf(interview.EventFailed), session.Status) {
			return interview.ErrInvalidTransition
		}

		session.Status = interview.StatusError
		session.ErrorMessage = message
		return nil
	})
}

// AdvanceQuestion sets the question index to `to` only if it is still `from`
func (s *InMemoryStore) AdvanceQuestion(ctx context.Context, sessionID uuid.UUID, from, to int) (bool, error) {
	applied := false
	err := s.update(sessionID, func(session *interview.Session) error {
		if session.CurrentQuestionIndex != from || !slices.Contains(interview.SourcesOf(interview.EventStarted), session.Status) {
			return nil
		}

		session.CurrentQuestionIndex = to
		session.Status = interview.StatusInProgress
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// AppendResponse stores one response and promotes ready sessions to in_progress
func (s *InMemoryStore) AppendResponse(ctx context.Context, sessionID uuid.UUID, response *interview.Response) error {
	if response == nil {
		return fmt.Errorf("response cannot be nil")
	}

	return s.update(sessionID, func(session *interview.Session) error {
		if session.Status == interview.StatusReady {
			session.Status = interview.StatusInProgress
		}

		s.nextID++
		response.ID = s.nextID
		response.SessionID = sessionID

		stored := *response
		session.Responses = append(session.Responses, &stored)
		return nil
	})
}

// ClaimCompletion records token as the completion lock if no live claim exists
func (s *InMemoryStore) ClaimCompletion(ctx context.Context, sessionID uuid.UUID, token string, startedAt, staleBefore time.Time) (bool, error) {
	claimed := false
	err := s.update(sessionID, func(session *interview.Session) error {
		if !slices.Contains(interview.SourcesOf(interview.EventCompleted), session.Status) {
			return nil
		}
		if session.Status == interview.StatusCompleted && session.ReportDelivered {
			return nil
		}
		if session.Locked() && session.CompletionStartedAt != nil && !session.CompletionStartedAt.Before(staleBefore) {
			return nil
		}

		lock := token
		started := startedAt
		session.CompletionLock = &lock
		session.CompletionStartedAt = &started
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return claimed, nil
}

// FinishCompletion records the outcome if token is still the active lock
func (s *InMemoryStore) FinishCompletion(ctx context.Context, sessionID uuid.UUID, token string, completion Completion) (bool, error) {
	finished := false
	err := s.update(sessionID, func(session *interview.Session) error {
		if !session.Locked() || *session.CompletionLock != token {
			return nil
		}

		session.Status = interview.StatusCompleted
		if session.ReportArtifact == "" {
			session.ReportArtifact = completion.Report
		}
		if session.ReportSource == "" {
			session.ReportSource = completion.Source
		}
		session.ReportDelivered = session.ReportDelivered || completion.Delivered
		if session.CompletedAt == nil {
			completedAt := completion.CompletedAt
			session.CompletedAt = &completedAt
		}
		session.CompletionLock = nil
		session.CompletionStartedAt = nil
		finished = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return finished, nil
}

// ReleaseCompletion clears the lock if token is still the active lock
func (s *InMemoryStore) ReleaseCompletion(ctx context.Context, sessionID uuid.UUID, token string) error {
	return s.update(sessionID, func(session *interview.Session) error {
		if session.Locked() && *session.CompletionLock == token {
			session.CompletionLock = nil
			session.CompletionStartedAt = nil
		}
		return nil
	})
}

// Count returns the number of stored sessions
func (s *InMemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// update runs fn against the stored session under the store lock
func (s *InMemoryStore) update(sessionID uuid.UUID, fn func(session *interview.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return interview.ErrNotFound
	}

	if err := fn(session); err != nil {
		return err
	}

	session.UpdatedAt = time.Now().UTC()
	return nil
}
