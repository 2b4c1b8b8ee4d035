package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string // default: tts-1
	Voice   string // default: nova
}

type OpenAITTS struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewOpenAITTS(cfg OpenAIConfig) *OpenAITTS {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.TTSModel1
	if cfg.Model != "" {
		model = openai.SpeechModel(cfg.Model)
	}
	voice := openai.VoiceNova
	if cfg.Voice != "" {
		voice = openai.SpeechVoice(cfg.Voice)
	}
	return &OpenAITTS{client: openai.NewClientWithConfig(clientCfg), model: model, voice: voice}
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize returns MP3 audio for the input text.
func (o *OpenAITTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	voice := o.voice
	if req.Voice != "" {
		voice = openai.SpeechVoice(req.Voice)
	}

	speechReq := openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          Clip(req.Input),
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	if req.Speed > 0 {
		speechReq.Speed = req.Speed
	}

	resp, err := o.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return &SynthesisResult{Audio: audio, ContentType: ContentTypeMP3}, nil
}
