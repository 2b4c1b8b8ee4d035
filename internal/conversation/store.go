package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

const listLimit = 50

type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, user_id, transcription, agent_response, created_at
		 FROM conversations WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.TenantID, &c.UserID, &c.Transcription, &c.AgentResponse, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, c *models.Conversation) error {
	var action []byte
	if len(c.CalendarAction) > 0 {
		action = c.CalendarAction
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO conversations (tenant_id, user_id, transcription, agent_response, calendar_action)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		c.TenantID, c.UserID, c.Transcription, c.AgentResponse, action,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the 50 most recent conversations, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.Conversation, error) {
	return s.store.List(ctx, tenantID, listLimit)
}

func (s *Service) Save(ctx context.Context, c *models.Conversation) error {
	return s.store.Create(ctx, c)
}
