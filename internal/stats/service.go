package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/buchungsbutler/voiceagent/internal/cache"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

const (
	cacheKey = "admin:stats"
	cacheTTL = 30 * time.Second
)

type Store interface {
	CountTenants(ctx context.Context, status models.TenantStatus) (int, error)
	CountUsers(ctx context.Context) (int, error)
	CallTotals(ctx context.Context) (calls int, seconds int64, err error)
	InvoiceTotals(ctx context.Context) (count int, revenue float64, err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CountTenants(ctx context.Context, status models.TenantStatus) (int, error) {
	var n int
	var err error
	if status == "" {
		err = s.db.QueryRow(ctx, "SELECT COUNT(*) FROM tenants").Scan(&n)
	} else {
		err = s.db.QueryRow(ctx, "SELECT COUNT(*) FROM tenants WHERE status = $1", status).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return n, nil
}

func (s *PGStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE NOT is_super_admin").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *PGStore) CallTotals(ctx context.Context) (int, int64, error) {
	var calls int
	var secs int64
	err := s.db.QueryRow(ctx, "SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0) FROM call_usage").Scan(&calls, &secs)
	if err != nil {
		return 0, 0, fmt.Errorf("sum calls: %w", err)
	}
	return calls, secs, nil
}

func (s *PGStore) InvoiceTotals(ctx context.Context) (int, float64, error) {
	var count int
	var revenue float64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(gross_amount) FILTER (WHERE status IN ('sent', 'paid')), 0)
		 FROM invoices WHERE status <> 'cancelled'`).Scan(&count, &revenue)
	if err != nil {
		return 0, 0, fmt.Errorf("sum invoices: %w", err)
	}
	return count, revenue, nil
}

type Service struct {
	store Store
	cache Cache
}

// NewService returns the platform statistics service. cache may be nil.
func NewService(store Store, c Cache) *Service {
	return &Service{store: store, cache: c}
}

// Platform returns the platform-wide counters, served from cache for up to 30s.
func (s *Service) Platform(ctx context.Context) (*models.PlatformStats, error) {
	if s.cache != nil {
		var cached models.PlatformStats
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("stats cache read failed", "error", err)
		}
	}

	st, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, st, cacheTTL); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}
	return st, nil
}

func (s *Service) compute(ctx context.Context) (*models.PlatformStats, error) {
	var st models.PlatformStats
	var seconds int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalTenants, err = s.store.CountTenants(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		st.PendingTenants, err = s.store.CountTenants(gctx, models.TenantPending)
		return err
	})
	g.Go(func() (err error) {
		st.ApprovedTenants, err = s.store.CountTenants(gctx, models.TenantApproved)
		return err
	})
	g.Go(func() (err error) {
		st.TotalUsers, err = s.store.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalCalls, seconds, err = s.store.CallTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalInvoices, st.TotalRevenue, err = s.store.InvoiceTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	st.TotalMinutes = math.Round(float64(seconds)/60*100) / 100
	st.TotalRevenue = math.Round(st.TotalRevenue*100) / 100
	return &st, nil
}
