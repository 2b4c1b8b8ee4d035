package tts

import (
	"context"
	"unicode/utf8"
)

const (
	ContentTypeMP3 = "audio/mpeg"
	ContentTypeWAV = "audio/wav"
)

// MaxInputRunes is the longest text any backend is asked to speak.
const MaxInputRunes = 4096

type SynthesisRequest struct {
	Input string
	Voice string // ignored by backends whose voice is fixed by the model
	Speed float64
}

type SynthesisResult struct {
	Audio       []byte
	ContentType string
}

type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}

// Clip shortens text to MaxInputRunes without splitting a rune.
func Clip(text string) string {
	if utf8.RuneCountInString(text) <= MaxInputRunes {
		return text
	}
	return string([]rune(text)[:MaxInputRunes])
}
