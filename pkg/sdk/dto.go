package sdk

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope. Error values are flattened to
// their message so they survive JSON encoding.
func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	if e, ok := err.(error); ok {
		err = e.Error()
	}

	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Session DTOs */

// CreateSessionRequest represents the request body for creating a session.
// An empty question list generates questions from ResumeText when it is set,
// and otherwise uses the configured question bank.
type CreateSessionRequest struct {
	Questions  []string `json:"questions"`
	ResumeText string   `json:"resume_text,omitempty"`
}

// SessionResponse is the room view of a session a candidate needs to join it
type SessionResponse struct {
	SessionID            string    `json:"session_id"`
	Status               string    `json:"status"`
	RoomName             string    `json:"room_name"`
	RoomSID              string    `json:"room_sid,omitempty"`
	Token                string    `json:"token,omitempty"`
	Questions            []string  `json:"questions"`
	QuestionSource       string    `json:"question_source,omitempty"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	CandidateName        string    `json:"candidate_name,omitempty"`
	BotName              string    `json:"bot_name,omitempty"`
	BotAvatar            string    `json:"bot_avatar,omitempty"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// StatusResponse reports the progress of a session
type StatusResponse struct {
	SessionID            string     `json:"session_id"`
	Status               string     `json:"status"`
	RoomName             string     `json:"room_name"`
	Questions            []string   `json:"questions"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	TotalQuestions       int        `json:"total_questions"`
	TotalResponses       int        `json:"total_responses"`
	ReportDelivered      bool       `json:"report_delivered"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// NextQuestionRequest asks to advance (default) or replay the current question
type NextQuestionRequest struct {
	IsNewQuestion *bool `json:"is_new_question"`
}

// AdvanceResponse is the question shown after a next-question call
type AdvanceResponse struct {
	CurrentQuestionIndex int    `json:"current_question_index"`
	Question             string `json:"question,omitempty"`
	HasMoreQuestions     bool   `json:"has_more_questions"`
	TotalQuestions       int    `json:"total_questions"`
}

// SubmitResponseRequest carries one recorded answer as a data URL or bare base64
type SubmitResponseRequest struct {
	QuestionIndex *int   `json:"question_index" binding:"required"`
	AudioBlob     string `json:"audio_blob" binding:"required"`
	Format        string `json:"format,omitempty"` // overrides the data URL media type
}

// SubmitResponseResponse returns the stored transcription
type SubmitResponseResponse struct {
	QuestionIndex int    `json:"question_index"`
	Transcription string `json:"transcription"`
}

// CompleteResponse is the recorded outcome of a completion or redelivery call
type CompleteResponse struct {
	SessionID       string `json:"session_id"`
	Outcome         string `json:"outcome"`
	Status          string `json:"status"`
	Report          string `json:"report"`
	ReportSource    string `json:"report_source"`
	ReportDelivered bool   `json:"report_delivered"`
	InProgress      bool   `json:"in_progress"`
	TotalQuestions  int    `json:"total_questions"`
	TotalResponses  int    `json:"total_responses"`
}

// Recording is one stored answer paired with its question
type Recording struct {
	QuestionIndex int       `json:"question_index"`
	Question      string    `json:"question"`
	Response      string    `json:"response"`
	Transcribed   bool      `json:"transcribed"`
	AudioFormat   string    `json:"audio_format,omitempty"`
	CapturedAt    time.Time `json:"timestamp"`
}

// RecordingsResponse lists the stored answers of a session
type RecordingsResponse struct {
	SessionID  string      `json:"session_id"`
	Status     string      `json:"status"`
	Recordings []Recording `json:"recordings"`
}

// TokenResponse is a freshly issued room access token
type TokenResponse struct {
	Token                string   `json:"token"`
	RoomName             string   `json:"room_name"`
	CurrentQuestionIndex int      `json:"current_question_index"`
	Questions            []string `json:"questions"`
}

// InstructionsResponse is shown to a candidate before the interview starts
type InstructionsResponse struct {
	GeneralRules          []string `json:"general_rules"`
	InterviewFormat       []string `json:"interview_format"`
	TechnicalRequirements []string `json:"technical_requirements"`
	PreparationTips       []string `json:"preparation_tips"`
}

// QuestionsResponse lists the default interview questions
type QuestionsResponse struct {
	Questions []string `json:"questions"`
}

// HealthResponse reports service liveness and which backends are wired
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
