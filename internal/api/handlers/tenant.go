package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type TenantService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, upd models.TenantUpdate) (*models.Tenant, error)
	Stats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error)
	ListUsers(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
	CreateUser(ctx context.Context, tenantID uuid.UUID, in tenant.CreateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, tenantID, actorID, userID uuid.UUID) error
}

type TenantHandler struct {
	svc TenantService
}

func NewTenantHandler(svc TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetByID(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update accepts either ?name= for the company name or a JSON partial update.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.TenantUpdate
	if r.URL.Query().Has("name") {
		name := r.URL.Query().Get("name")
		upd.CompanyName = &name
	} else if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.svc.Update(r.Context(), tenant.IDFromContext(r.Context()), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TenantHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *TenantHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in tenant.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.CreateUser(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *TenantHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	actor := tenant.UserFromContext(r.Context())

	if err := h.svc.DeleteUser(r.Context(), tenant.IDFromContext(r.Context()), actor.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
