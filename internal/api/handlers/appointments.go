package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/appointment"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type AppointmentService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Appointment, error)
	Create(ctx context.Context, tenantID, userID uuid.UUID, req appointment.CreateRequest) (*models.Appointment, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type AppointmentHandler struct {
	svc AppointmentService
}

func NewAppointmentHandler(svc AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.List(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointment.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user := tenant.UserFromContext(r.Context())
	appt, err := h.svc.Create(r.Context(), tenant.IDFromContext(r.Context()), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}
