package handlers

import (
	"context"
	"net/http"

	"github.com/buchungsbutler/voiceagent/internal/auth"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	Me(ctx context.Context, user *models.User, t *models.Tenant) *auth.Profile
	Logout(ctx context.Context, claims *auth.Claims) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Me(r.Context(), user, tenant.FromContext(r.Context())))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), auth.ClaimsFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
