package stt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAITranscribe(t *testing.T) {
	var gotLanguage, gotModel, gotAudio string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotAudio = string(b)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"text": "Ich möchte morgen um zehn einen Termin.", "language": "german", "duration": 2.4})
	}))
	defer srv.Close()

	s := NewOpenAISTT(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	resp, err := s.Transcribe(context.Background(), TranscriptionRequest{
		Audio:    strings.NewReader("RIFF-fake-audio"),
		Filename: "anruf.wav",
		Language: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ich möchte morgen um zehn einen Termin.", resp.Text)
	assert.InDelta(t, 2.4, resp.Duration, 1e-9)
	assert.Equal(t, "de", gotLanguage)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "RIFF-fake-audio", gotAudio)
}

func TestOpenAITranscribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	s := NewOpenAISTT(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := s.Transcribe(context.Background(), TranscriptionRequest{Audio: strings.NewReader("x")})
	assert.Error(t, err)
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "local-whisper", NewLocalSTT("").Name())
}

func TestHintFor(t *testing.T) {
	assert.Equal(t, "Terminvereinbarung bei Salon Eva. Uhrzeit, Datum.", HintFor("Salon Eva"))
	assert.NotEmpty(t, HintFor(""))
}
