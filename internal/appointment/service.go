package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

const (
	listLimit = 100
	// ContextLimit bounds how many upcoming appointments the voice agent sees.
	ContextLimit = 10
)

var providers = map[string]bool{
	models.ProviderLocal:     true,
	models.ProviderGoogle:    true,
	models.ProviderMicrosoft: true,
}

type CreateRequest struct {
	Title            string    `json:"title"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Description      *string   `json:"description,omitempty"`
	CalendarProvider string    `json:"calendar_provider"`
}

func (r *CreateRequest) validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apperr.Invalid("title is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return apperr.Invalid("start_time and end_time are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return apperr.Invalid("end_time must be after start_time")
	}
	if r.CalendarProvider == "" {
		r.CalendarProvider = models.ProviderLocal
	}
	if !providers[r.CalendarProvider] {
		return apperr.Invalid("Unknown calendar_provider")
	}
	return nil
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns the tenant's appointments ordered by start time.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.Appointment, error) {
	return s.store.List(ctx, tenantID, nil, listLimit)
}

// Upcoming returns at most limit appointments that have not started yet.
func (s *Service) Upcoming(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Appointment, error) {
	now := s.now()
	return s.store.List(ctx, tenantID, &now, limit)
}

func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateRequest) (*models.Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a := &models.Appointment{
		TenantID:         tenantID,
		UserID:           &userID,
		Title:            req.Title,
		StartTime:        req.StartTime.UTC(),
		EndTime:          req.EndTime.UTC(),
		Description:      req.Description,
		CalendarProvider: req.CalendarProvider,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.store.Delete(ctx, tenantID, id)
}
