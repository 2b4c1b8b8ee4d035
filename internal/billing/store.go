package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

type Store interface {
	ListPlans(ctx context.Context) ([]models.PricingPlan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error)
	FirstActivePlan(ctx context.Context) (*models.PricingPlan, error)
	CreatePlan(ctx context.Context, p *models.PricingPlan) error
	UpdatePlan(ctx context.Context, p *models.PricingPlan) error
	DeletePlan(ctx context.Context, id uuid.UUID) error

	ListPackages(ctx context.Context) ([]models.MinutePackage, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*models.MinutePackage, error)
	CreatePackage(ctx context.Context, p *models.MinutePackage) error
	UpdatePackage(ctx context.Context, p *models.MinutePackage) error
	DeletePackage(ctx context.Context, id uuid.UUID) error

	ListInvoices(ctx context.Context, tenantID *uuid.UUID) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	// FindInvoice returns the non-cancelled invoice of a tenant for exactly this period.
	FindInvoice(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error)
	// CreateInvoice assigns the next number with the given prefix and inserts the invoice.
	// A second invoice for the same tenant and period is a conflict.
	CreateInvoice(ctx context.Context, inv *models.Invoice, numberPrefix string) error
	MarkSent(ctx context.Context, id uuid.UUID, lexofficeID string, sentAt time.Time) (*models.Invoice, error)
}

const periodUniqueIndex = "invoices_tenant_period_key"

var errPeriodInvoiced = apperr.Conflict("Invoice already exists for this period")

const (
	planColumns    = `id, name, price_per_minute, monthly_fee, included_minutes, description, is_active, created_at`
	packageColumns = `id, name, minutes, price, is_active, created_at`
	invoiceColumns = `id, tenant_id, invoice_number, period_start, period_end, pricing_plan_id, total_minutes,
		included_minutes, billable_minutes, price_per_minute, monthly_fee, net_amount, tax_rate, tax_amount,
		gross_amount, status, lexoffice_id, created_at, sent_at`
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func scanPlan(row pgx.Row) (*models.PricingPlan, error) {
	var p models.PricingPlan
	err := row.Scan(&p.ID, &p.Name, &p.PricePerMinute, &p.MonthlyFee, &p.IncludedMinutes,
		&p.Description, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPackage(row pgx.Row) (*models.MinutePackage, error) {
	var p models.MinutePackage
	if err := row.Scan(&p.ID, &p.Name, &p.Minutes, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var i models.Invoice
	err := row.Scan(&i.ID, &i.TenantID, &i.InvoiceNumber, &i.PeriodStart, &i.PeriodEnd, &i.PricingPlanID,
		&i.TotalMinutes, &i.IncludedMinutes, &i.BillableMinutes, &i.PricePerMinute, &i.MonthlyFee,
		&i.NetAmount, &i.TaxRate, &i.TaxAmount, &i.GrossAmount, &i.Status, &i.LexofficeID,
		&i.CreatedAt, &i.SentAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msg)
	}
	return err
}

func (s *PGStore) ListPlans(ctx context.Context) ([]models.PricingPlan, error) {
	rows, err := s.db.Query(ctx, "SELECT "+planColumns+" FROM pricing_plans ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list pricing plans: %w", err)
	}
	defer rows.Close()

	plans := []models.PricingPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (s *PGStore) GetPlan(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, "SELECT "+planColumns+" FROM pricing_plans WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "Pricing plan not found")
	}
	return p, nil
}

func (s *PGStore) FirstActivePlan(ctx context.Context) (*models.PricingPlan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx,
		"SELECT "+planColumns+" FROM pricing_plans WHERE is_active ORDER BY created_at LIMIT 1"))
	if err != nil {
		return nil, notFound(err, "No active pricing plan found")
	}
	return p, nil
}

func (s *PGStore) CreatePlan(ctx context.Context, p *models.PricingPlan) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO pricing_plans (name, price_per_minute, monthly_fee, included_minutes, description, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		p.Name, p.PricePerMinute, p.MonthlyFee, p.IncludedMinutes, p.Description, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pricing plan: %w", err)
	}
	return nil
}

func (s *PGStore) UpdatePlan(ctx context.Context, p *models.PricingPlan) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE pricing_plans SET name = $2, price_per_minute = $3, monthly_fee = $4,
		 included_minutes = $5, description = $6, is_active = $7 WHERE id = $1`,
		p.ID, p.Name, p.PricePerMinute, p.MonthlyFee, p.IncludedMinutes, p.Description, p.IsActive)
	if err != nil {
		return fmt.Errorf("update pricing plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Pricing plan not found")
	}
	return nil
}

func (s *PGStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM pricing_plans WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete pricing plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Pricing plan not found")
	}
	return nil
}

func (s *PGStore) ListPackages(ctx context.Context) ([]models.MinutePackage, error) {
	rows, err := s.db.Query(ctx, "SELECT "+packageColumns+" FROM minute_packages ORDER BY minutes")
	if err != nil {
		return nil, fmt.Errorf("list minute packages: %w", err)
	}
	defer rows.Close()

	pkgs := []models.MinutePackage{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan minute package: %w", err)
		}
		pkgs = append(pkgs, *p)
	}
	return pkgs, rows.Err()
}

func (s *PGStore) GetPackage(ctx context.Context, id uuid.UUID) (*models.MinutePackage, error) {
	p, err := scanPackage(s.db.QueryRow(ctx, "SELECT "+packageColumns+" FROM minute_packages WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "Minute package not found")
	}
	return p, nil
}

func (s *PGStore) CreatePackage(ctx context.Context, p *models.MinutePackage) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO minute_packages (name, minutes, price, is_active) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.Name, p.Minutes, p.Price, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert minute package: %w", err)
	}
	return nil
}

func (s *PGStore) UpdatePackage(ctx context.Context, p *models.MinutePackage) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE minute_packages SET name = $2, minutes = $3, price = $4, is_active = $5 WHERE id = $1",
		p.ID, p.Name, p.Minutes, p.Price, p.IsActive)
	if err != nil {
		return fmt.Errorf("update minute package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Minute package not found")
	}
	return nil
}

func (s *PGStore) DeletePackage(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM minute_packages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete minute package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Minute package not found")
	}
	return nil
}

func (s *PGStore) ListInvoices(ctx context.Context, tenantID *uuid.UUID) ([]models.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices"
	var args []any
	if tenantID != nil {
		query += " WHERE tenant_id = $1"
		args = append(args, *tenantID)
	}
	query += " ORDER BY created_at DESC LIMIT 500"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (s *PGStore) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "Invoice not found")
	}
	return inv, nil
}

func (s *PGStore) FindInvoice(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx,
		"SELECT "+invoiceColumns+` FROM invoices
		 WHERE tenant_id = $1 AND period_start = $2 AND period_end = $3 AND status <> 'cancelled'`,
		tenantID, periodStart, periodEnd))
	if err != nil {
		return nil, notFound(err, "Invoice not found")
	}
	return inv, nil
}

func (s *PGStore) CreateInvoice(ctx context.Context, inv *models.Invoice, numberPrefix string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialises numbering per prefix until commit.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", numberPrefix); err != nil {
		return fmt.Errorf("lock invoice numbering: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE $1 || '%'", numberPrefix,
	).Scan(&count); err != nil {
		return fmt.Errorf("count invoices: %w", err)
	}
	inv.InvoiceNumber = fmt.Sprintf("%s%04d", numberPrefix, count+1)

	err = tx.QueryRow(ctx,
		`INSERT INTO invoices (tenant_id, invoice_number, period_start, period_end, pricing_plan_id,
		 total_minutes, included_minutes, billable_minutes, price_per_minute, monthly_fee, net_amount,
		 tax_rate, tax_amount, gross_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at`,
		inv.TenantID, inv.InvoiceNumber, inv.PeriodStart, inv.PeriodEnd, inv.PricingPlanID,
		inv.TotalMinutes, inv.IncludedMinutes, inv.BillableMinutes, inv.PricePerMinute, inv.MonthlyFee,
		inv.NetAmount, inv.TaxRate, inv.TaxAmount, inv.GrossAmount, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == periodUniqueIndex {
			return errPeriodInvoiced
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PGStore) MarkSent(ctx context.Context, id uuid.UUID, lexofficeID string, sentAt time.Time) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx,
		`UPDATE invoices SET status = 'sent', lexoffice_id = $2, sent_at = $3
		 WHERE id = $1 AND status = 'created' RETURNING `+invoiceColumns,
		id, lexofficeID, sentAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Conflict("Invoice already sent or not found")
		}
		return nil, fmt.Errorf("mark invoice sent: %w", err)
	}
	return inv, nil
}
