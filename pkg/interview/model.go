package interview

import (
	"time"

	"github.com/google/uuid"
)

// Where a session's questions came from
const (
	QuestionsProvided  = "provided"
	QuestionsGenerated = "generated"
	QuestionsBank      = "bank"
)

// Session is the durable record of one interview from creation to completion
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	// Owner and candidate details copied from the caller's credentials
	OwnerID        string `json:"owner_id" gorm:"size:255;not null;index"`
	CandidateName  string `json:"candidate_name" gorm:"size:255"`
	CandidateEmail string `json:"candidate_email" gorm:"size:255"`

	Status               Status      `json:"status" gorm:"size:20;not null;index"`
	Questions            []string    `json:"questions" gorm:"serializer:json;type:json"`
	QuestionSource       string      `json:"question_source" gorm:"size:20"`
	CurrentQuestionIndex int         `json:"current_question_index" gorm:"not null;default:0"`
	Responses            []*Response `json:"responses,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT"`

	// Room reference, set once provisioning succeeds
	RoomName    string `json:"room_name" gorm:"size:255"`
	RoomSID     string `json:"room_sid" gorm:"column:room_sid;size:64"`
	AccessToken string `json:"-" gorm:"type:text"`

	ErrorMessage string `json:"error_message,omitempty" gorm:"type:text"`

	// Completion claim
	CompletionLock      *string    `json:"-" gorm:"size:36;index"`
	CompletionStartedAt *time.Time `json:"-"`

	// Report artifacts
	ReportArtifact  string     `json:"report,omitempty" gorm:"type:longtext"`
	ReportSource    string     `json:"report_source,omitempty" gorm:"size:20"`
	ReportDelivered bool       `json:"report_delivered" gorm:"not null;default:false"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Response is one captured candidate answer
type Response struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:char(36);not null;index"`

	QuestionIndex int       `json:"question_index" gorm:"not null"`
	Transcription string    `json:"transcription" gorm:"type:text"`
	Transcribed   bool      `json:"transcribed"` // false when Transcription holds a fallback sentinel
	AudioFormat   string    `json:"audio_format" gorm:"size:20"`
	AudioBytes    int       `json:"audio_bytes"`
	CapturedAt    time.Time `json:"captured_at" gorm:"not null;index"`
}

// Room is the externally provisioned video room a session runs in
type Room struct {
	Name        string `json:"room_name"`
	SID         string `json:"room_sid"`
	AccessToken string `json:"token"`
}

// Owner identifies the authenticated user creating a session
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TableName sets the session table name for GORM
func (Session) TableName() string {
	return "interview_sessions"
}

// TableName sets the response table name for GORM
func (Response) TableName() string {
	return "interview_responses"
}

// HasQuestion reports whether index addresses one of the session's questions
func (s *Session) HasQuestion(index int) bool {
	return index >= 0 && index < len(s.Questions)
}

// Question returns the question at index, or an empty string when out of range
func (s *Session) Question(index int) string {
	if !s.HasQuestion(index) {
		return ""
	}
	return s.Questions[index]
}

// ResponseFor returns the latest response captured for a question, or nil
func (s *Session) ResponseFor(index int) *Response {
	var latest *Response
	for _, r := range s.Responses {
		if r.QuestionIndex != index {
			continue
		}
		if latest == nil || !r.CapturedAt.Before(latest.CapturedAt) {
			latest = r
		}
	}
	return latest
}

// Locked reports whether a completion claim is currently recorded
func (s *Session) Locked() bool {
	return s.CompletionLock != nil && *s.CompletionLock != ""
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	out := *s
	out.Questions = append([]string(nil), s.Questions...)

	out.Responses = make([]*Response, 0, len(s.Responses))
	for _, r := range s.Responses {
		rc := *r
		out.Responses = append(out.Responses, &rc)
	}

	if s.CompletionLock != nil {
		lock := *s.CompletionLock
		out.CompletionLock = &lock
	}
	if s.CompletionStartedAt != nil {
		t := *s.CompletionStartedAt
		out.CompletionStartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}

	return &out
}
