package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type ConversationService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Conversation, error)
}

type ConversationHandler struct {
	svc ConversationService
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.List(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}
