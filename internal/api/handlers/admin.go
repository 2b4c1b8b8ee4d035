package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/audit"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/telephony"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type AdminTenantService interface {
	List(ctx context.Context, status models.TenantStatus) ([]models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Transition(ctx context.Context, id uuid.UUID, action tenant.Action) (*models.Tenant, error)
	AssignPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) (*models.Tenant, error)
}

type PlatformStats interface {
	Platform(ctx context.Context) (*models.PlatformStats, error)
}

type TelephonyService interface {
	Status(ctx context.Context) (*telephony.Status, error)
	Update(ctx context.Context, values map[string]string) (*telephony.Status, error)
}

type AuditService interface {
	Record(ctx context.Context, entry audit.LogEntry)
	List(ctx context.Context, q audit.Query) ([]models.AuditLog, error)
	UsageSummary(ctx context.Context, tenantID *uuid.UUID, from, to *time.Time) ([]audit.UsageSummary, error)
}

type AdminHandler struct {
	tenants   AdminTenantService
	stats     PlatformStats
	telephony TelephonyService
	audit     AuditService
}

func NewAdminHandler(tenants AdminTenantService, stats PlatformStats, tel TelephonyService, auditSvc AuditService) *AdminHandler {
	return &AdminHandler{tenants: tenants, stats: stats, telephony: tel, audit: auditSvc}
}

func (h *AdminHandler) record(r *http.Request, action, resourceType string, id *uuid.UUID, details map[string]any) {
	h.audit.Record(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   id,
		Details:      details,
		IPAddress:    clientIP(r),
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Platform(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context(), models.TenantStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.tenants.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Transition returns a handler applying one status action to the tenant in the URL.
func (h *AdminHandler) Transition(action tenant.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		t, err := h.tenants.Transition(r.Context(), id, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h.record(r, "tenant."+string(action), "tenant", &t.ID, map[string]any{"status": t.Status})
		writeJSON(w, http.StatusOK, t)
	}
}

func (h *AdminHandler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		PricingPlanID *uuid.UUID `json:"pricing_plan_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.tenants.AssignPlan(r.Context(), id, req.PricingPlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "tenant.plan", "tenant", &t.ID, map[string]any{"pricing_plan_id": req.PricingPlanID})
	writeJSON(w, http.StatusOK, t)
}

func (h *AdminHandler) TelephonyConfig(w http.ResponseWriter, r *http.Request) {
	st, err := h.telephony.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateTelephonyConfig stores only the settings present in the query string.
func (h *AdminHandler) UpdateTelephonyConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	values := map[string]string{}
	var changed []string
	for _, k := range telephony.Keys {
		if q.Has(k) {
			values[k] = q.Get(k)
			changed = append(changed, k)
		}
	}

	st, err := h.telephony.Update(r.Context(), values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "settings.update", "platform_settings", nil, map[string]any{"keys": changed})
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{Action: r.URL.Query().Get("action")}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	var err error
	if q.StartDate, err = queryTime(r, "start_date"); err != nil {
		writeError(w, r, err)
		return
	}
	if q.EndDate, err = queryTime(r, "end_date"); err != nil {
		writeError(w, r, err)
		return
	}

	logs, err := h.audit.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) LLMUsage(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "start_date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "end_date")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var tenantID *uuid.UUID
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, apperr.Invalid("Invalid tenant_id"))
			return
		}
		tenantID = &id
	}

	summary, err := h.audit.UsageSummary(r.Context(), tenantID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": summary})
}
