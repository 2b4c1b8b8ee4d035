package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

// Store persists calendar connections. Tokens arrive already encrypted.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.CalendarConnection, error)
	Create(ctx context.Context, c *models.CalendarConnection) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ListExpiring(ctx context.Context, before time.Time) ([]models.CalendarConnection, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, access, refresh string, expiresAt *time.Time) error
}

const columns = `id, tenant_id, provider, email, access_token, refresh_token, expires_at, created_at`

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func scanConnections(rows pgx.Rows) ([]models.CalendarConnection, error) {
	defer rows.Close()
	out := []models.CalendarConnection{}
	for rows.Next() {
		var c models.CalendarConnection
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Provider, &c.Email, &c.AccessToken,
			&c.RefreshToken, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan calendar connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.CalendarConnection, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+columns+" FROM calendar_connections WHERE tenant_id = $1 ORDER BY created_at LIMIT 100", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list calendar connections: %w", err)
	}
	return scanConnections(rows)
}

func (s *PGStore) Create(ctx context.Context, c *models.CalendarConnection) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO calendar_connections (tenant_id, provider, email, access_token, refresh_token, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		c.TenantID, c.Provider, c.Email, c.AccessToken, c.RefreshToken, c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert calendar connection: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM calendar_connections WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete calendar connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Calendar not found")
	}
	return nil
}

func (s *PGStore) ListExpiring(ctx context.Context, before time.Time) ([]models.CalendarConnection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+columns+` FROM calendar_connections
		 WHERE refresh_token <> '' AND expires_at IS NOT NULL AND expires_at < $1
		 ORDER BY expires_at`, before)
	if err != nil {
		return nil, fmt.Errorf("list expiring calendar connections: %w", err)
	}
	return scanConnections(rows)
}

func (s *PGStore) UpdateTokens(ctx context.Context, id uuid.UUID, access, refresh string, expiresAt *time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE calendar_connections SET access_token = $2, refresh_token = $3, expires_at = $4 WHERE id = $1`,
		id, access, refresh, expiresAt)
	if err != nil {
		return fmt.Errorf("update calendar tokens: %w", err)
	}
	return nil
}
