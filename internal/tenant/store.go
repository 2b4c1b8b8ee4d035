package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

var (
	ErrUserLimit  = errors.New("user limit reached")
	ErrEmailTaken = errors.New("email already registered")
	// ErrStatusConflict is returned when a tenant is not in one of the expected states.
	ErrStatusConflict = errors.New("status conflict")
)

// Store persists tenants and their users.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context, status models.TenantStatus) ([]models.Tenant, error)
	UpdateTenant(ctx context.Context, t *models.Tenant) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from []models.TenantStatus, to models.TenantStatus) (*models.Tenant, error)
	SetPricingPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User, limit int) error
	DeleteUser(ctx context.Context, tenantID, userID uuid.UUID) error

	Stats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error)
}

// TenantColumns lists the tenant columns in ScanTenant order.
const TenantColumns = `id, company_name, contact_person, email, phone, street, house_number,
	postal_code, city, country, tax_number, vat_id, website, industry, status,
	pricing_plan_id, status_changed_at, created_at, updated_at`

// UserColumns lists the user columns in ScanUser order.
const UserColumns = `id, tenant_id, email, username, password_hash, is_active, is_admin, is_super_admin, created_at`

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// ScanTenant reads a row selected with the tenant column list.
func ScanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.CompanyName, &t.ContactPerson, &t.Email, &t.Phone, &t.Street,
		&t.HouseNumber, &t.PostalCode, &t.City, &t.Country, &t.TaxNumber, &t.VatID,
		&t.Website, &t.Industry, &t.Status, &t.PricingPlanID, &t.StatusChangedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ScanUser reads a row selected with the user column list.
func ScanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Username, &u.PasswordHash,
		&u.IsActive, &u.IsAdmin, &u.IsSuperAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := ScanTenant(s.db.QueryRow(ctx, "SELECT "+TenantColumns+" FROM tenants WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *PGStore) ListTenants(ctx context.Context, status models.TenantStatus) ([]models.Tenant, error) {
	query := "SELECT " + TenantColumns + " FROM tenants"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		t, err := ScanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func (s *PGStore) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	err := s.db.QueryRow(ctx,
		`UPDATE tenants SET company_name = $2, contact_person = $3, phone = $4, street = $5,
		        house_number = $6, postal_code = $7, city = $8, country = $9, tax_number = $10,
		        vat_id = $11, website = $12, industry = $13, updated_at = now()
		 WHERE id = $1 RETURNING updated_at`,
		t.ID, t.CompanyName, t.ContactPerson, t.Phone, t.Street, t.HouseNumber, t.PostalCode,
		t.City, t.Country, t.TaxNumber, t.VatID, t.Website, t.Industry,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Tenant not found")
	}
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

func (s *PGStore) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.TenantStatus, to models.TenantStatus) (*models.Tenant, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	t, err := ScanTenant(s.db.QueryRow(ctx,
		`UPDATE tenants SET status = $2, status_changed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = ANY($3)
		 RETURNING `+TenantColumns,
		id, to, allowed,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetTenant(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("transition tenant status: %w", err)
	}
	return t, nil
}

func (s *PGStore) SetPricingPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE tenants SET pricing_plan_id = $2, updated_at = now() WHERE id = $1", id, planID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.NotFound("Pricing plan not found")
		}
		return fmt.Errorf("set pricing plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Tenant not found")
	}
	return nil
}

func (s *PGStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := ScanUser(s.db.QueryRow(ctx, "SELECT "+UserColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PGStore) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+UserColumns+" FROM users WHERE tenant_id = $1 ORDER BY created_at", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := ScanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CreateUser inserts u unless the tenant already holds limit users. The tenant
// row is locked so concurrent creations cannot both pass the check.
func (s *PGStore) CreateUser(ctx context.Context, u *models.User, limit int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, "SELECT id FROM tenants WHERE id = $1 FOR UPDATE", u.TenantID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Tenant not found")
		}
		return fmt.Errorf("lock tenant: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE tenant_id = $1", u.TenantID).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count >= limit {
		return ErrUserLimit
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, username, password_hash, is_active, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		u.TenantID, u.Email, u.Username, u.PasswordHash, u.IsActive, u.IsAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PGStore) DeleteUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM users WHERE id = $1 AND tenant_id = $2", userID, tenantID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *PGStore) Stats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	var st models.TenantStats
	err := s.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM appointments WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM conversations WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM calendar_connections WHERE tenant_id = $1)`,
		tenantID,
	).Scan(&st.Appointments, &st.Conversations, &st.Users, &st.Calendars)
	if err != nil {
		return nil, fmt.Errorf("tenant stats: %w", err)
	}
	return &st, nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
