package stt

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty uses the OpenAI API
	Model   string // default: whisper-1
}

// OpenAISTT transcribes audio with Whisper or any endpoint speaking its API.
type OpenAISTT struct {
	client *openai.Client
	model  string
	name   string
}

func NewOpenAISTT(cfg OpenAIConfig) *OpenAISTT {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAISTT{client: openai.NewClientWithConfig(clientCfg), model: model, name: "openai-whisper"}
}

func (o *OpenAISTT) Name() string { return o.name }

func (o *OpenAISTT) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	filename := req.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: filename,
		Reader:   req.Audio,
		Language: req.Language,
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	return &TranscriptionResponse{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}
