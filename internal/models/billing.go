package models

import (
	"time"

	"github.com/google/uuid"
)

type PricingPlan struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	PricePerMinute  float64   `json:"price_per_minute" db:"price_per_minute"`
	MonthlyFee      float64   `json:"monthly_fee" db:"monthly_fee"`
	IncludedMinutes int       `json:"included_minutes" db:"included_minutes"`
	Description     string    `json:"description" db:"description"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type MinutePackage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Minutes   int       `json:"minutes" db:"minutes"`
	Price     float64   `json:"price" db:"price"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceCreated   InvoiceStatus = "created"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	TenantID        uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	InvoiceNumber   string        `json:"invoice_number" db:"invoice_number"`
	PeriodStart     time.Time     `json:"period_start" db:"period_start"`
	PeriodEnd       time.Time     `json:"period_end" db:"period_end"`
	PricingPlanID   *uuid.UUID    `json:"pricing_plan_id,omitempty" db:"pricing_plan_id"`
	TotalMinutes    float64       `json:"total_minutes" db:"total_minutes"`
	IncludedMinutes int           `json:"included_minutes" db:"included_minutes"`
	BillableMinutes float64       `json:"billable_minutes" db:"billable_minutes"`
	PricePerMinute  float64       `json:"price_per_minute" db:"price_per_minute"`
	MonthlyFee      float64       `json:"monthly_fee" db:"monthly_fee"`
	NetAmount       float64       `json:"net_amount" db:"net_amount"`
	TaxRate         float64       `json:"tax_rate" db:"tax_rate"`
	TaxAmount       float64       `json:"tax_amount" db:"tax_amount"`
	GrossAmount     float64       `json:"gross_amount" db:"gross_amount"`
	Status          InvoiceStatus `json:"status" db:"status"`
	LexofficeID     string        `json:"lexoffice_id,omitempty" db:"lexoffice_id"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	SentAt          *time.Time    `json:"sent_at,omitempty" db:"sent_at"`
}

// CallUsage is one telephone call handled by the voice agent.
type CallUsage struct {
	ID              uuid.UUID `json:"id" db:"id"`
	TenantID        uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Provider        string    `json:"provider" db:"provider"`
	CallID          string    `json:"call_id" db:"call_id"`
	Caller          string    `json:"caller,omitempty" db:"caller"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type PlatformStats struct {
	TotalTenants    int     `json:"total_tenants"`
	PendingTenants  int     `json:"pending_tenants"`
	ApprovedTenants int     `json:"approved_tenants"`
	TotalUsers      int     `json:"total_users"`
	TotalCalls      int     `json:"total_calls"`
	TotalMinutes    float64 `json:"total_minutes"`
	TotalInvoices   int     `json:"total_invoices"`
	TotalRevenue    float64 `json:"total_revenue"`
}
