package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/calendar"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type CalendarService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.CalendarConnection, error)
	Connect(ctx context.Context, tenantID uuid.UUID, req calendar.ConnectRequest) (*models.CalendarConnection, error)
	Disconnect(ctx context.Context, tenantID, id uuid.UUID) error
}

type CalendarHandler struct {
	svc CalendarService
}

func NewCalendarHandler(svc CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.svc.List(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *CalendarHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req calendar.ConnectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.svc.Connect(r.Context(), tenant.IDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *CalendarHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Disconnect(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Calendar disconnected"})
}
