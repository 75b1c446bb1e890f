package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Completion is the outcome recorded by the holder of a completion claim
type Completion struct {
	Report      string
	Source      string
	Delivered   bool
	CompletedAt time.Time
}

// Store defines the durable session record. Every method that touches status,
// the completion lock or the delivery flag is a single conditional write.
type Store interface {
	CreateSession(ctx context.Context, session *interview.Session) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*interview.Session, error)

	// MarkProvisioned moves a scheduled session to ready and records its room
	MarkProvisioned(ctx context.Context, sessionID uuid.UUID, room interview.Room) error
	// MarkFailed moves a non-terminal session to error
	MarkFailed(ctx context.Context, sessionID uuid.UUID, message string) error

	// AdvanceQuestion sets the question index to `to` only if it is still `from`
	AdvanceQuestion(ctx context.Context, sessionID uuid.UUID, from, to int) (bool, error)
	// AppendResponse stores one response and promotes ready sessions to in_progress
	AppendResponse(ctx context.Context, sessionID uuid.UUID, response *interview.Response) error

	// ClaimCompletion records token as the completion lock if no live claim exists
	// and the session still needs completing or delivering
	ClaimCompletion(ctx context.Context, sessionID uuid.UUID, token string, startedAt, staleBefore time.Time) (bool, error)
	// FinishCompletion records the outcome if token is still the active lock
	FinishCompletion(ctx context.Context, sessionID uuid.UUID, token string, completion Completion) (bool, error)
	// ReleaseCompletion clears the lock if token is still the active lock
	ReleaseCompletion(ctx context.Context, sessionID uuid.UUID, token string) error
}

// MySqlStore handles session persistence using GORM
type MySqlStore struct {
	db *gorm.DB
}

// NewMySqlStore creates a new session store with a MySQL GORM connection
func NewMySqlStore(databaseURL string) (*MySqlStore, error) {
	return NewMySqlStoreFromDialector(mysql.Open(databaseURL))
}

// NewMySqlStoreFromDialector creates a new session store over any GORM dialector
func NewMySqlStoreFromDialector(dialector gorm.Dialector) (*MySqlStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(&interview.Session{}, &interview.Response{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySqlStore{db: db}, nil
}

// CreateSession inserts a new session
func (s *MySqlStore) CreateSession(ctx context.Context, session *interview.Session) error {
	if session.ID == uuid.Nil {
		return fmt.Errorf("session id cannot be empty")
	}

	if err := s.db.WithContext(ctx).Omit("Responses").Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID with its responses in capture order
func (s *MySqlStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*interview.Session, error) {
	var session interview.Session
	result := s.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("captured_at ASC").Order("id ASC")
		}).
		First(&session, "id = ?", sessionID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, interview.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}

	return &session, nil
}

// MarkProvisioned moves a scheduled session to ready and records its room
func (s *MySqlStore) MarkProvisioned(ctx context.Context, sessionID uuid.UUID, room interview.Room) error {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("status IN ?", statuses(interview.SourcesOf(interview.EventProvisioned))).
		Where("room_name = ?", "").
		Updates(map[string]any{
			"status":       string(interview.StatusReady),
			"room_name":    room.Name,
			"room_sid":     room.SID,
			"access_token": room.AccessToken,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark session provisioned: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return s.missOrInvalid(ctx, sessionID)
	}
	return nil
}

// MarkFailed moves a non-terminal session to error
func (s *MySqlStore) MarkFailed(ctx context.Context, sessionID uuid.UUID, message string) error {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("status IN ?", statuses(interview.SourcesOf(interview.EventFailed))).
		Updates(map[string]any{
			"status":        string(interview.StatusError),
			"error_message": message,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark session failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return s.missOrInvalid(ctx, sessionID)
	}
	return nil
}

// AdvanceQuestion sets the question index to `to` only if it is still `from`
func (s *MySqlStore) AdvanceQuestion(ctx context.Context, sessionID uuid.UUID, from, to int) (bool, error) {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("current_question_index = ?", from).
		Where("status IN ?", statuses(interview.SourcesOf(interview.EventStarted))).
		Updates(map[string]any{
			"current_question_index": to,
			"status":                 string(interview.StatusInProgress),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance question: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// AppendResponse stores one response and promotes ready sessions to in_progress
func (s *MySqlStore) AppendResponse(ctx context.Context, sessionID uuid.UUID, response *interview.Response) error {
	if response == nil {
		return fmt.Errorf("response cannot be nil")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&interview.Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up session: %w", err)
		}
		if count == 0 {
			return interview.ErrNotFound
		}

		promote := tx.Model(&interview.Session{}).
			Where("id = ?", sessionID).
			Where("status = ?", string(interview.StatusReady)).
			Update("status", string(interview.StatusInProgress))
		if promote.Error != nil {
			return fmt.Errorf("failed to promote session: %w", promote.Error)
		}

		response.SessionID = sessionID
		if err := tx.Create(response).Error; err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}

		return nil
	})
}

// ClaimCompletion records token as the completion lock if no live claim exists
func (s *MySqlStore) ClaimCompletion(ctx context.Context, sessionID uuid.UUID, token string, startedAt, staleBefore time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("status IN ?", statuses(interview.SourcesOf(interview.EventCompleted))).
		Where("NOT (status = ? AND report_delivered = ?)", string(interview.StatusCompleted), true).
		Where("(completion_lock IS NULL OR completion_started_at < ?)", staleBefore).
		Updates(map[string]any{
			"completion_lock":       token,
			"completion_started_at": startedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim completion: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// FinishCompletion records the outcome if token is still the active lock. A
// report already stored is never replaced and the delivery flag never reverts.
func (s *MySqlStore) FinishCompletion(ctx context.Context, sessionID uuid.UUID, token string, completion Completion) (bool, error) {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("completion_lock = ?", token).
		Updates(map[string]any{
			"status":                string(interview.StatusCompleted),
			"report_artifact":       gorm.Expr("CASE WHEN report_artifact IS NULL OR report_artifact = '' THEN ? ELSE report_artifact END", completion.Report),
			"report_source":         gorm.Expr("CASE WHEN report_source IS NULL OR report_source = '' THEN ? ELSE report_source END", completion.Source),
			"report_delivered":      gorm.Expr("report_delivered OR ?", completion.Delivered),
			"completed_at":          gorm.Expr("COALESCE(completed_at, ?)", completion.CompletedAt),
			"completion_lock":       nil,
			"completion_started_at": nil,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to finish completion: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// ReleaseCompletion clears the lock if token is still the active lock
func (s *MySqlStore) ReleaseCompletion(ctx context.Context, sessionID uuid.UUID, token string) error {
	result := s.db.WithContext(ctx).Model(&interview.Session{}).
		Where("id = ?", sessionID).
		Where("completion_lock = ?", token).
		Updates(map[string]any{
			"completion_lock":       nil,
			"completion_started_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release completion: %w", result.Error)
	}

	return nil
}

// GetDB returns the underlying GORM database connection
func (s *MySqlStore) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *MySqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// missOrInvalid explains why a conditional write matched no row
func (s *MySqlStore) missOrInvalid(ctx context.Context, sessionID uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&interview.Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if count == 0 {
		return interview.ErrNotFound
	}
	return interview.ErrInvalidTransition
}

// statuses converts statuses into driver-friendly strings
func statuses(in []interview.Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
