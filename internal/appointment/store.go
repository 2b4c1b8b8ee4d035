package appointment

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

type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, from *time.Time, limit int) ([]models.Appointment, error)
	Create(ctx context.Context, a *models.Appointment) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

const columns = `id, tenant_id, user_id, title, start_time, end_time, description, calendar_provider, created_at`

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func scan(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	if err := row.Scan(&a.ID, &a.TenantID, &a.UserID, &a.Title, &a.StartTime, &a.EndTime,
		&a.Description, &a.CalendarProvider, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID, from *time.Time, limit int) ([]models.Appointment, error) {
	query := "SELECT " + columns + " FROM appointments WHERE tenant_id = $1"
	args := []any{tenantID}
	if from != nil {
		query += " AND start_time >= $2"
		args = append(args, *from)
	}
	query += fmt.Sprintf(" ORDER BY start_time ASC LIMIT %d", limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := []models.Appointment{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, a *models.Appointment) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO appointments (tenant_id, user_id, title, start_time, end_time, description, calendar_provider)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		a.TenantID, a.UserID, a.Title, a.StartTime, a.EndTime, a.Description, a.CalendarProvider,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM appointments WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Appointment not found")
	}
	return nil
}
