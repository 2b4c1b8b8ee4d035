package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

const EventInvoiceSent = "invoice.sent"

// UsageSource reports billable call minutes.
type UsageSource interface {
	Minutes(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (float64, error)
}

type Tenants interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context, status models.TenantStatus) ([]models.Tenant, error)
}

// KeySource yields the platform's Lexoffice API key, empty when unset.
type KeySource interface {
	LexofficeKey(ctx context.Context) (string, error)
}

type InvoiceSender interface {
	CreateInvoice(ctx context.Context, apiKey string, inv *models.Invoice, t *models.Tenant) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// SendScheduler queues asynchronous delivery of an invoice.
type SendScheduler interface {
	EnqueueInvoiceSend(ctx context.Context, invoiceID uuid.UUID) error
}

type Config struct {
	TaxRate  float64
	Location *time.Location
}

type Service struct {
	store   Store
	usage   UsageSource
	tenants Tenants
	keys    KeySource
	sender  InvoiceSender
	events  EventPublisher
	cfg     Config
	now     func() time.Time
}

func NewService(store Store, usage UsageSource, tenants Tenants, keys KeySource, sender InvoiceSender, events EventPublisher, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:   store,
		usage:   usage,
		tenants: tenants,
		keys:    keys,
		sender:  sender,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// computeAmounts fills the invoice totals from the plan and the used minutes.
func computeAmounts(inv *models.Invoice, plan *models.PricingPlan, totalMinutes, taxRate float64) {
	// The net is priced from the stored billable minutes so it matches the
	// line item sent to Lexoffice.
	billable := roundCents(math.Max(0, totalMinutes-float64(plan.IncludedMinutes)))
	net := plan.MonthlyFee + billable*plan.PricePerMinute

	inv.PricingPlanID = &plan.ID
	inv.TotalMinutes = roundCents(totalMinutes)
	inv.IncludedMinutes = plan.IncludedMinutes
	inv.BillableMinutes = billable
	inv.PricePerMinute = plan.PricePerMinute
	inv.MonthlyFee = plan.MonthlyFee
	inv.NetAmount = roundCents(net)
	inv.TaxRate = taxRate
	inv.TaxAmount = roundCents(inv.NetAmount * taxRate)
	inv.GrossAmount = roundCents(inv.NetAmount + inv.TaxAmount)
}

func (s *Service) ListInvoices(ctx context.Context, tenantID *uuid.UUID) ([]models.Invoice, error) {
	return s.store.ListInvoices(ctx, tenantID)
}

// Generate creates the invoice of a tenant for [periodStart, periodEnd).
// A tenant is invoiced at most once per period; a repeat is a conflict.
func (s *Service) Generate(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error) {
	if !periodEnd.After(periodStart) {
		return nil, apperr.Invalid("period_end must be after period_start")
	}
	periodStart, periodEnd = periodStart.UTC(), periodEnd.UTC()

	if _, err := s.store.FindInvoice(ctx, tenantID, periodStart, periodEnd); err == nil {
		return nil, errPeriodInvoiced
	} else if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}

	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planFor(ctx, t)
	if err != nil {
		return nil, err
	}

	minutes, err := s.usage.Minutes(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("sum usage: %w", err)
	}

	inv := &models.Invoice{
		TenantID:    tenantID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      models.InvoiceCreated,
	}
	computeAmounts(inv, plan, minutes, s.cfg.TaxRate)

	prefix := "RE-" + s.now().In(s.cfg.Location).Format("200601") + "-"
	if err := s.store.CreateInvoice(ctx, inv, prefix); err != nil {
		return nil, err
	}

	slog.Info("invoice generated",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"tenant_id", tenantID,
		"gross_amount", inv.GrossAmount,
	)
	return inv, nil
}

func (s *Service) planFor(ctx context.Context, t *models.Tenant) (*models.PricingPlan, error) {
	if t.PricingPlanID != nil {
		plan, err := s.store.GetPlan(ctx, *t.PricingPlanID)
		if err == nil {
			return plan, nil
		}
		if !apperr.Is(err, apperr.CodeNotFound) {
			return nil, err
		}
	}
	plan, err := s.store.FirstActivePlan(ctx)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.Invalid("No active pricing plan found")
		}
		return nil, err
	}
	return plan, nil
}

// SendToLexoffice transmits a created invoice and marks it sent.
func (s *Service) SendToLexoffice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceCreated {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot send invoice with status %s", inv.Status))
	}

	key, err := s.keys.LexofficeKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, apperr.Invalid("Lexoffice API key not configured")
	}

	t, err := s.tenants.GetTenant(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}

	lexID, err := s.sender.CreateInvoice(ctx, key, inv, t)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Lexoffice transmission failed", err)
	}

	sent, err := s.store.MarkSent(ctx, inv.ID, lexID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, EventInvoiceSent, sent); err != nil {
			slog.Warn("publish invoice event failed", "invoice_id", sent.ID, "error", err)
		}
	}
	return sent, nil
}

// PreviousMonth returns the calendar month before now in the billing time zone.
func (s *Service) PreviousMonth() (time.Time, time.Time) {
	now := s.now().In(s.cfg.Location)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.cfg.Location)
	return end.AddDate(0, -1, 0), end
}

type MonthlyResult struct {
	Generated int
	Skipped   int
	Queued    int
	Failed    int
}

// RunMonthly invoices every approved tenant for the previous month and queues
// Lexoffice delivery when a key is configured. It is safe to rerun: tenants
// already invoiced for the period are skipped, and their invoice is queued
// again if it was never sent.
func (s *Service) RunMonthly(ctx context.Context, sends SendScheduler) (MonthlyResult, error) {
	var res MonthlyResult
	start, end := s.PreviousMonth()

	tenants, err := s.tenants.ListTenants(ctx, models.TenantApproved)
	if err != nil {
		return res, err
	}

	key, err := s.keys.LexofficeKey(ctx)
	if err != nil {
		return res, err
	}

	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		inv, created, err := s.periodInvoice(ctx, t.ID, start, end)
		if err != nil {
			res.Failed++
			slog.Error("monthly invoice failed", "tenant_id", t.ID, "error", err)
			continue
		}
		if created {
			res.Generated++
		} else {
			res.Skipped++
		}

		if key == "" || sends == nil || inv.Status != models.InvoiceCreated {
			continue
		}
		if err := sends.EnqueueInvoiceSend(ctx, inv.ID); err != nil {
			slog.Error("queue invoice send failed", "invoice_id", inv.ID, "error", err)
			continue
		}
		res.Queued++
	}

	if res.Failed > 0 && res.Generated+res.Skipped == 0 && len(tenants) > 0 {
		return res, errors.New("no invoices generated")
	}
	return res, nil
}

// periodInvoice returns the tenant's invoice for the period, generating it
// when none exists yet.
func (s *Service) periodInvoice(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*models.Invoice, bool, error) {
	inv, err := s.Generate(ctx, tenantID, start, end)
	if err == nil {
		return inv, true, nil
	}
	if !apperr.Is(err, apperr.CodeConflict) {
		return nil, false, err
	}
	inv, err = s.store.FindInvoice(ctx, tenantID, start.UTC(), end.UTC())
	if err != nil {
		return nil, false, err
	}
	return inv, false, nil
}
