package transcription

import (
	"context"
	"log"
	"strings"
)

// Fixed strings stored in place of a transcription when no text could be produced
const (
	NoSpeechDetected   = "No speech detected in audio recording"
	Inaudible          = "Could not understand audio - please speak more clearly"
	ServiceUnavailable = "Audio was recorded but transcription service is unavailable"
	ProcessingFailed   = "Audio was recorded but could not be processed for transcription"
)

var sentinels = map[string]struct{}{
	NoSpeechDetected:   {},
	Inaudible:          {},
	ServiceUnavailable: {},
	ProcessingFailed:   {},
}

// IsSentinel reports whether text is one of the fallback strings
func IsSentinel(text string) bool {
	_, ok := sentinels[text]
	return ok
}

// SpeechToText is an external speech-to-text provider. It receives 16 kHz
// mono 16-bit WAV bytes.
type SpeechToText interface {
	SpeechToText(ctx context.Context, wav []byte) (string, error)
}

// Adapter wraps a provider so callers always get a string back
type Adapter struct {
	provider SpeechToText
}

// NewAdapter creates an adapter over provider. A nil provider behaves as an
// unreachable service.
func NewAdapter(provider SpeechToText) *Adapter {
	return &Adapter{provider: provider}
}

// Transcribe converts normalized audio to text. It never fails; provider
// problems are reported through the fallback strings.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) string {
	if len(audio) == 0 {
		return NoSpeechDetected
	}

	if a.provider == nil {
		return ServiceUnavailable
	}

	text, err := a.provider.SpeechToText(ctx, audio)
	if err != nil {
		log.Printf("[TRANSCRIPTION]: provider request failed: %v\n", err)
		return ServiceUnavailable
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Inaudible
	}

	return text
}
