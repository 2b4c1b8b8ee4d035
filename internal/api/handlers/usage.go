package handlers

import (
	"context"
	"net/http"

	"github.com/buchungsbutler/voiceagent/internal/usage"
)

type UsageRecorder interface {
	Record(ctx context.Context, req usage.RecordRequest) (bool, error)
}

type UsageHandler struct {
	svc UsageRecorder
}

func NewUsageHandler(svc UsageRecorder) *UsageHandler {
	return &UsageHandler{svc: svc}
}

// Ingest records a finished call reported by the telephony bridge.
func (h *UsageHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req usage.RecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.Record(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]any{"recorded": false, "duplicate": true})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recorded": true})
}
