package transcription

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider transcribes audio with the OpenAI transcription endpoint
type OpenAIProvider struct {
	client   openai.Client
	model    string
	language string
}

// OpenAIOptions configures the OpenAI provider
type OpenAIOptions struct {
	APIKey   string
	BaseURL  string // optional, for compatible endpoints and tests
	Model    string // defaults to whisper-1
	Language string // defaults to en
}

// NewOpenAIProvider creates a provider from the given options
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set in config or environment")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}

	return &OpenAIProvider{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		language: language,
	}, nil
}

// SpeechToText uploads the WAV bytes and returns the recognized text
func (p *OpenAIProvider) SpeechToText(ctx context.Context, wav []byte) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(wav), "response.wav", "audio/wav"),
		Model:    openai.AudioModel(p.model),
		Language: openai.String(p.language),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}

	return resp.Text, nil
}
