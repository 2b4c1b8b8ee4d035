package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/audit"
	"github.com/buchungsbutler/voiceagent/internal/billing"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

type BillingService interface {
	ListPlans(ctx context.Context) ([]models.PricingPlan, error)
	CreatePlan(ctx context.Context, in billing.PlanInput) (*models.PricingPlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, in billing.PlanInput) (*models.PricingPlan, error)
	DeletePlan(ctx context.Context, id uuid.UUID) error

	ListPackages(ctx context.Context) ([]models.MinutePackage, error)
	CreatePackage(ctx context.Context, in billing.PackageInput) (*models.MinutePackage, error)
	UpdatePackage(ctx context.Context, id uuid.UUID, in billing.PackageInput) (*models.MinutePackage, error)
	DeletePackage(ctx context.Context, id uuid.UUID) error

	ListInvoices(ctx context.Context, tenantID *uuid.UUID) ([]models.Invoice, error)
	Generate(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error)
	SendToLexoffice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	PreviousMonth() (time.Time, time.Time)
}

type BillingHandler struct {
	svc   BillingService
	audit AuditService
}

func NewBillingHandler(svc BillingService, auditSvc AuditService) *BillingHandler {
	return &BillingHandler{svc: svc, audit: auditSvc}
}

func (h *BillingHandler) record(r *http.Request, action, resourceType string, id uuid.UUID) {
	h.audit.Record(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &id,
		IPAddress:    clientIP(r),
	})
}

func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *BillingHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var in billing.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.CreatePlan(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "pricing_plan.create", "pricing_plan", p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *BillingHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in billing.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.UpdatePlan(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "pricing_plan.update", "pricing_plan", p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *BillingHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeletePlan(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "pricing_plan.delete", "pricing_plan", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Pricing plan deleted"})
}

func (h *BillingHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.svc.ListPackages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (h *BillingHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var in billing.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.CreatePackage(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "minute_package.create", "minute_package", p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *BillingHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in billing.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.UpdatePackage(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "minute_package.update", "minute_package", p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *BillingHandler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeletePackage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "minute_package.delete", "minute_package", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Minute package deleted"})
}

func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	var tenantID *uuid.UUID
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, apperr.Invalid("Invalid tenant_id"))
			return
		}
		tenantID = &id
	}
	invoices, err := h.svc.ListInvoices(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Generate bills a tenant for the given period, or for the previous month
// when no period is supplied.
func (h *BillingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := urlID(r, "tenant_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := queryTime(r, "period_start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := queryTime(r, "period_end")
	if err != nil {
		writeError(w, r, err)
		return
	}

	from, to := h.svc.PreviousMonth()
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	inv, err := h.svc.Generate(r.Context(), tenantID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "invoice.generate", "invoice", inv.ID)
	writeJSON(w, http.StatusOK, inv)
}

func (h *BillingHandler) SendToLexoffice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.svc.SendToLexoffice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "invoice.send", "invoice", inv.ID)
	writeJSON(w, http.StatusOK, inv)
}
