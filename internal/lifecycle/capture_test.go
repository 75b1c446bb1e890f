package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResponseOutOfOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2", "Q3")

	f.speech.text = "third"
	text, err := f.manager.RecordResponse(ctx, session.ID, 2, answerAudio, transcription.FormatWAV)
	require.NoError(t, err)
	assert.Equal(t, "third", text)

	f.speech.text = "first"
	_, err = f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, transcription.FormatWAV)
	require.NoError(t, err)

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 2)
	assert.Equal(t, 2, stored.Responses[0].QuestionIndex)
	assert.Equal(t, 0, stored.Responses[1].QuestionIndex)
	assert.True(t, stored.Responses[0].Transcribed)
	assert.Equal(t, len(answerAudio), stored.Responses[0].AudioBytes)
	assert.Equal(t, interview.StatusInProgress, stored.Status)

	// Index advancement is independent of responses
	assert.Equal(t, 0, stored.CurrentQuestionIndex)
}

func TestRecordResponseRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2")

	_, err := f.manager.RecordResponse(ctx, session.ID, 0, nil, "")
	assert.True(t, errors.Is(err, interview.ErrEmptyAudio))
	assert.True(t, errors.Is(err, interview.ErrInvalidInput))

	_, err = f.manager.RecordResponse(ctx, session.ID, 2, answerAudio, "")
	assert.True(t, errors.Is(err, interview.ErrInvalidQuestionIndex))

	_, err = f.manager.RecordResponse(ctx, session.ID, -1, answerAudio, "")
	assert.True(t, errors.Is(err, interview.ErrInvalidQuestionIndex))

	_, err = f.manager.RecordResponse(ctx, uuid.New(), 0, answerAudio, "")
	assert.True(t, errors.Is(err, interview.ErrNotFound))

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Responses)
}

func TestRecordResponseRejectsTerminalSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	_, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
}

func TestRecordResponseProviderUnreachable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2")

	f.speech.err = errors.New("dial tcp: connection refused")
	text, err := f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
	require.NoError(t, err)
	assert.Equal(t, transcription.ServiceUnavailable, text)

	// The session stays usable
	f.speech.err = nil
	f.speech.text = "recovered"
	text, err = f.manager.RecordResponse(ctx, session.ID, 1, answerAudio, "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 2)
	assert.Equal(t, transcription.ServiceUnavailable, stored.Responses[0].Transcription)
	assert.False(t, stored.Responses[0].Transcribed)
	assert.True(t, stored.Responses[1].Transcribed)
}

func TestRecordResponseFaultsStillStoreOneResponse(t *testing.T) {
	tests := []struct {
		name       string
		normalizer *passthroughNormalizer
	}{
		{"normalizer error", &passthroughNormalizer{err: errors.New("ffmpeg missing")}},
		{"normalizer panic", &passthroughNormalizer{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(opts *Options) { opts.Normalizer = tt.normalizer })
			ctx := context.Background()
			session := f.create(t, "Q1")

			text, err := f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
			require.NoError(t, err)
			assert.Equal(t, transcription.ProcessingFailed, text)

			stored, err := f.manager.GetSession(ctx, session.ID)
			require.NoError(t, err)
			require.Len(t, stored.Responses, 1)
			assert.Equal(t, transcription.ProcessingFailed, stored.Responses[0].Transcription)
		})
	}
}

func TestRecordResponseNormalizesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	var received []byte
	speech := &recordingSpeech{onCall: func(wav []byte) { received = wav }}

	f := newFixture(t, func(opts *Options) {
		opts.Normalizer = transcription.NewNormalizer("", dir)
		opts.Transcriber = transcription.NewAdapter(speech)
	})
	ctx := context.Background()
	session := f.create(t, "Q1")

	text, err := f.manager.RecordResponse(ctx, session.ID, 0, stereoWAV(t), "")
	require.NoError(t, err)
	assert.Equal(t, "normalized", text)

	decoder := wav.NewDecoder(bytes.NewReader(received))
	require.True(t, decoder.IsValidFile())
	assert.Equal(t, uint32(transcription.TargetSampleRate), decoder.SampleRate)
	assert.Equal(t, uint16(1), decoder.NumChans)

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "wav", stored.Responses[0].AudioFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type recordingSpeech struct {
	onCall func(wav []byte)
}

func (r *recordingSpeech) SpeechToText(ctx context.Context, wav []byte) (string, error) {
	r.onCall(wav)
	return "normalized", nil
}

func stereoWAV(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, 44100*2)
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}
