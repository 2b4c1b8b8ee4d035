package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

// Store is the persistence needed by registration, login and seeding.
type Store interface {
	Directory
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateTenantWithOwner(ctx context.Context, t *models.Tenant, owner *models.User) error
	CountSuperAdmins(ctx context.Context) (int, error)
	CreateSuperAdmin(ctx context.Context, u *models.User) error
}

type PGStore struct {
	*tenant.PGStore
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{PGStore: tenant.NewPGStore(db), db: db}
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := tenant.ScanUser(s.db.QueryRow(ctx,
		"SELECT "+tenant.UserColumns+" FROM users WHERE lower(email) = lower($1)", email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *PGStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))
		     OR EXISTS(SELECT 1 FROM tenants WHERE lower(email) = lower($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// CreateTenantWithOwner inserts the tenant and its first user in one transaction.
func (s *PGStore) CreateTenantWithOwner(ctx context.Context, t *models.Tenant, owner *models.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tenants (company_name, contact_person, email, phone, street, house_number,
		                      postal_code, city, country, tax_number, vat_id, website, industry, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		t.CompanyName, t.ContactPerson, t.Email, t.Phone, t.Street, t.HouseNumber, t.PostalCode,
		t.City, t.Country, t.TaxNumber, t.VatID, t.Website, t.Industry, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	owner.TenantID = &t.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, username, password_hash, is_active, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		owner.TenantID, owner.Email, owner.Username, owner.PasswordHash, owner.IsActive, owner.IsAdmin,
	).Scan(&owner.ID, &owner.CreatedAt)
	if err != nil {
		if tenant.IsUniqueViolation(err) {
			return tenant.ErrEmailTaken
		}
		return fmt.Errorf("insert owner: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PGStore) CountSuperAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE is_super_admin").Scan(&n); err != nil {
		return 0, fmt.Errorf("count super admins: %w", err)
	}
	return n, nil
}

func (s *PGStore) CreateSuperAdmin(ctx context.Context, u *models.User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash, is_active, is_admin, is_super_admin)
		 VALUES ($1, $2, $3, true, true, true) RETURNING id, created_at`,
		u.Email, u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert super admin: %w", err)
	}
	return nil
}
