package stt

import (
	"context"
	"io"
)

type TranscriptionRequest struct {
	Audio    io.Reader
	Filename string
	Language string
	// Prompt biases recognition toward expected words such as the business name.
	Prompt string
}

type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type Provider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}

// HintFor builds a recognition prompt for a booking call with the named business.
func HintFor(company string) string {
	if company == "" {
		return "Terminvereinbarung, Uhrzeit, Datum."
	}
	return "Terminvereinbarung bei " + company + ". Uhrzeit, Datum."
}
