package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type Store interface {
	Insert(ctx context.Context, l *models.AuditLog) error
	List(ctx context.Context, q Query) ([]models.AuditLog, error)
	InsertLLMUsage(ctx context.Context, rec *models.LLMUsageLog) error
	UsageSummary(ctx context.Context, tenantID *uuid.UUID, from, to *time.Time) ([]UsageSummary, error)
}

type Query struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	ActorID   *uuid.UUID
	Limit     int
	Offset    int
}

type UsageSummary struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	TotalCalls   int     `json:"total_calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, l *models.AuditLog) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO audit_logs (actor_id, actor_email, action, resource_type, resource_id, details, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		l.ActorID, l.ActorEmail, l.Action, l.ResourceType, l.ResourceID, []byte(l.Details), l.IPAddress,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	query := `SELECT id, actor_id, actor_email, action, resource_type, resource_id, details, ip_address, created_at
			  FROM audit_logs`
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.Action != "" {
		add("action = $%d", q.Action)
	}
	if q.ActorID != nil {
		add("actor_id = $%d", *q.ActorID)
	}
	if q.StartDate != nil {
		add("created_at >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		add("created_at <= $%d", *q.EndDate)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	args = append(args, q.Limit, q.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.ActorEmail, &l.Action, &l.ResourceType, &l.ResourceID,
			&l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *PGStore) InsertLLMUsage(ctx context.Context, rec *models.LLMUsageLog) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO llm_usage_logs (tenant_id, user_id, provider, model, input_tokens, output_tokens, cost_usd, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.TenantID, rec.UserID, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("insert LLM usage log: %w", err)
	}
	return nil
}

func (s *PGStore) UsageSummary(ctx context.Context, tenantID *uuid.UUID, from, to *time.Time) ([]UsageSummary, error) {
	query := `SELECT provider, model, COUNT(*),
			         COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			         COALESCE(SUM(cost_usd), 0)
			  FROM llm_usage_logs WHERE TRUE`
	var args []any
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " GROUP BY provider, model ORDER BY 6 DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	summaries := []UsageSummary{}
	for rows.Next() {
		var us UsageSummary
		if err := rows.Scan(&us.Provider, &us.Model, &us.TotalCalls, &us.InputTokens, &us.OutputTokens, &us.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, us)
	}
	return summaries, rows.Err()
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type LogEntry struct {
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]any
	IPAddress    string
}

// Log records an administrative action. The actor is the user in ctx.
func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	l := &models.AuditLog{
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      json.RawMessage("{}"),
	}
	if user := tenant.UserFromContext(ctx); user != nil {
		l.ActorID = &user.ID
		l.ActorEmail = user.Email
	}
	if len(entry.Details) > 0 {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		l.Details = details
	}
	if entry.IPAddress != "" {
		if ip, err := netip.ParseAddr(entry.IPAddress); err == nil {
			l.IPAddress = &ip
		}
	}
	return s.store.Insert(ctx, l)
}

// Record is Log for callers that must not fail on audit errors.
func (s *Service) Record(ctx context.Context, entry LogEntry) {
	if err := s.Log(ctx, entry); err != nil {
		slog.Error("audit log failed", "action", entry.Action, "error", err)
	}
}

func (s *Service) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.store.List(ctx, q)
}

func (s *Service) LogLLMUsage(ctx context.Context, rec models.LLMUsageLog) error {
	if rec.TenantID == uuid.Nil {
		rec.TenantID = tenant.IDFromContext(ctx)
	}
	if rec.UserID == nil {
		if user := tenant.UserFromContext(ctx); user != nil {
			rec.UserID = &user.ID
		}
	}
	if rec.TenantID == uuid.Nil {
		return fmt.Errorf("llm usage without tenant")
	}
	return s.store.InsertLLMUsage(ctx, &rec)
}

func (s *Service) UsageSummary(ctx context.Context, tenantID *uuid.UUID, from, to *time.Time) ([]UsageSummary, error) {
	return s.store.UsageSummary(ctx, tenantID, from, to)
}
