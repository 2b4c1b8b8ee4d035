package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

var knownProviders = map[string]bool{"twilio": true, "sipgate": true}

type Store interface {
	// Insert stores the call and reports false when it was already recorded.
	Insert(ctx context.Context, c *models.CallUsage) (bool, error)
	TenantExists(ctx context.Context, id uuid.UUID) (bool, error)
	SumSeconds(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, c *models.CallUsage) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO call_usage (tenant_id, provider, call_id, caller, started_at, duration_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (provider, call_id) DO NOTHING`,
		c.TenantID, c.Provider, c.CallID, c.Caller, c.StartedAt, c.DurationSeconds,
	)
	if err != nil {
		return false, fmt.Errorf("insert call usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) TenantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)", id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check tenant: %w", err)
	}
	return ok, nil
}

func (s *PGStore) SumSeconds(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(duration_seconds), 0) FROM call_usage
		 WHERE tenant_id = $1 AND started_at >= $2 AND started_at < $3`,
		tenantID, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum call usage: %w", err)
	}
	return total, nil
}

type RecordRequest struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	Provider        string    `json:"provider"`
	CallID          string    `json:"call_id"`
	Caller          string    `json:"caller,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record stores a finished call. Repeated reports of the same call are
// accepted and ignored; created is false for them.
func (s *Service) Record(ctx context.Context, req RecordRequest) (created bool, err error) {
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	switch {
	case req.TenantID == uuid.Nil:
		return false, apperr.Invalid("tenant_id is required")
	case !knownProviders[req.Provider]:
		return false, apperr.Invalid("provider must be twilio or sipgate")
	case strings.TrimSpace(req.CallID) == "":
		return false, apperr.Invalid("call_id is required")
	case req.DurationSeconds < 0:
		return false, apperr.Invalid("duration_seconds must not be negative")
	case req.StartedAt.IsZero():
		return false, apperr.Invalid("started_at is required")
	}

	exists, err := s.store.TenantExists(ctx, req.TenantID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, apperr.NotFound("Tenant not found")
	}

	return s.store.Insert(ctx, &models.CallUsage{
		TenantID:        req.TenantID,
		Provider:        req.Provider,
		CallID:          req.CallID,
		Caller:          req.Caller,
		StartedAt:       req.StartedAt.UTC(),
		DurationSeconds: req.DurationSeconds,
	})
}

// Minutes returns the call minutes of a tenant in [from, to).
func (s *Service) Minutes(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (float64, error) {
	secs, err := s.store.SumSeconds(ctx, tenantID, from, to)
	if err != nil {
		return 0, err
	}
	return float64(secs) / 60, nil
}
