package lifecycle

import (
	"context"
	"fmt"
	"log"

	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
)

// RecordResponse normalizes, transcribes and stores one answer, returning the
// stored transcription. Every accepted call appends exactly one response,
// holding a fallback sentinel when no text could be produced.
func (m *Manager) RecordResponse(ctx context.Context, sessionID uuid.UUID, questionIndex int, audio []byte, format transcription.Format) (string, error) {
	if len(audio) == 0 {
		return "", interview.ErrEmptyAudio
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if !session.HasQuestion(questionIndex) {
		return "", fmt.Errorf("%w: %d is outside [0, %d)", interview.ErrInvalidQuestionIndex, questionIndex, len(session.Questions))
	}
	if session.Status != interview.StatusReady && session.Status != interview.StatusInProgress {
		return "", fmt.Errorf("%w: cannot record a response for a %s session", interview.ErrInvalidTransition, session.Status)
	}

	if format == "" || format == transcription.FormatUnknown {
		format = transcription.DetectFormat(audio)
	}
	text := m.transcribe(ctx, audio, format)

	response := &interview.Response{
		QuestionIndex: questionIndex,
		Transcription: text,
		Transcribed:   !transcription.IsSentinel(text),
		AudioFormat:   string(format),
		AudioBytes:    len(audio),
		CapturedAt:    m.now(),
	}
	if err := m.store.AppendResponse(ctx, sessionID, response); err != nil {
		return "", err
	}

	return text, nil
}

// transcribe runs normalization and transcription. A fault in either step is
// turned into the processing sentinel so the answer is still stored.
func (m *Manager) transcribe(ctx context.Context, audio []byte, format transcription.Format) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[LIFECYCLE]: recovered from transcription fault: %v\n", r)
			text = transcription.ProcessingFailed
		}
	}()

	normalized, err := m.normalizer.Normalize(ctx, audio, format)
	if err != nil {
		log.Printf("[LIFECYCLE]: failed to normalize %s audio: %v\n", format, err)
		return transcription.ProcessingFailed
	}

	return m.transcriber.Transcribe(ctx, normalized)
}
