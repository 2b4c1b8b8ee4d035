package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
	"github.com/buchungsbutler/voiceagent/internal/voice"
)

type VoiceService interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Process(ctx context.Context, t *models.Tenant, user *models.User, transcription string) (*voice.ProcessResult, error)
}

type VoiceHandler struct {
	svc VoiceService
}

func NewVoiceHandler(svc VoiceService) *VoiceHandler {
	return &VoiceHandler{svc: svc}
}

func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around the audio part.
	r.Body = http.MaxBytesReader(w, r.Body, voice.MaxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		writeError(w, r, apperr.Invalid("Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Invalid("file required"))
		return
	}
	defer file.Close()

	if header.Size > voice.MaxAudioBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Audio file too large")
		return
	}

	text, err := h.svc.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcription": text})
}

func (h *VoiceHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcription string `json:"transcription"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	res, err := h.svc.Process(ctx, tenant.FromContext(ctx), tenant.UserFromContext(ctx), req.Transcription)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
