package lifecycle

import (
	"context"

	"github.com/ethanbaker/interviewer/internal/delivery"
	"github.com/ethanbaker/interviewer/internal/report"
	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
)

// RoomProvisioner creates the video room a session runs in
type RoomProvisioner interface {
	ProvisionRoom(ctx context.Context, sessionID uuid.UUID, ownerID string) (interview.Room, error)
	IssueToken(roomName, ownerID string) (string, error)
}

// QuestionGenerator writes interview questions from extracted resume text
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, resumeText string) ([]string, error)
}

// ReportDrafter writes an assessment from a complete Q/A set
type ReportDrafter interface {
	DraftReport(ctx context.Context, pairs []interview.QA) (string, error)
}

// ReportRenderer renders report text as a PDF
type ReportRenderer interface {
	RenderPDF(text string, meta report.Metadata) ([]byte, error)
}

// ReportSender delivers a report email
type ReportSender interface {
	SendReport(ctx context.Context, email delivery.Email) (bool, error)
}

// Transcriber turns normalized audio into text and never fails
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// AudioNormalizer converts captured audio to the transcriber's input format
type AudioNormalizer interface {
	Normalize(ctx context.Context, data []byte, format transcription.Format) ([]byte, error)
}
