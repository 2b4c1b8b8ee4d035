package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

// Platform events emitted on tenant lifecycle changes.
const (
	EventRegistered = "tenant.registered"
	EventApproved   = "tenant.approved"
	EventRejected   = "tenant.rejected"
	EventSuspended  = "tenant.suspended"
)

// EventPublisher delivers platform events out of band.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// PasswordHasher turns a plain password into a stored hash.
type PasswordHasher func(password string) (string, error)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionSuspend Action = "suspend"
)

type transition struct {
	from  []models.TenantStatus
	to    models.TenantStatus
	event string
}

var transitions = map[Action]transition{
	ActionApprove: {from: []models.TenantStatus{models.TenantPending, models.TenantSuspended}, to: models.TenantApproved, event: EventApproved},
	ActionReject:  {from: []models.TenantStatus{models.TenantPending}, to: models.TenantRejected, event: EventRejected},
	ActionSuspend: {from: []models.TenantStatus{models.TenantApproved}, to: models.TenantSuspended, event: EventSuspended},
}

type Service struct {
	store  Store
	hash   PasswordHasher
	events EventPublisher
}

func NewService(store Store, hash PasswordHasher, events EventPublisher) *Service {
	return &Service{store: store, hash: hash, events: events}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, upd models.TenantUpdate) (*models.Tenant, error) {
	if upd.CompanyName != nil && strings.TrimSpace(*upd.CompanyName) == "" {
		return nil, apperr.Invalid("company_name must not be empty")
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(t)
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, status models.TenantStatus) ([]models.Tenant, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("Invalid status filter")
	}
	return s.store.ListTenants(ctx, status)
}

// Transition moves a tenant through the approval lifecycle.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action Action) (*models.Tenant, error) {
	tr, ok := transitions[action]
	if !ok {
		return nil, apperr.Invalid("Unknown action")
	}

	t, err := s.store.TransitionStatus(ctx, id, tr.from, tr.to)
	if errors.Is(err, ErrStatusConflict) {
		current, getErr := s.store.GetTenant(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Conflict(fmt.Sprintf("Cannot %s tenant with status %s", action, current.Status))
	}
	if err != nil {
		return nil, err
	}

	slog.Info("tenant status changed", "tenant_id", t.ID, "status", t.Status)
	s.publish(ctx, tr.event, t)
	return t, nil
}

func (s *Service) AssignPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) (*models.Tenant, error) {
	if err := s.store.SetPricingPlan(ctx, id, planID); err != nil {
		return nil, err
	}
	return s.store.GetTenant(ctx, id)
}

func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	return s.store.Stats(ctx, tenantID)
}

func (s *Service) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	return s.store.ListUsers(ctx, tenantID)
}

type CreateUserInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in CreateUserInput) validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return apperr.Invalid("username is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperr.Invalid("Invalid email address")
	}
	if len(in.Password) < 6 {
		return apperr.Invalid("Password must be at least 6 characters")
	}
	return nil
}

// CreateUser adds a login to the tenant. A tenant holds at most
// models.MaxUsersPerTenant users.
func (s *Service) CreateUser(ctx context.Context, tenantID uuid.UUID, in CreateUserInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		TenantID:     &tenantID,
		Email:        in.Email,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		IsActive:     true,
	}
	switch err := s.store.CreateUser(ctx, u, models.MaxUsersPerTenant); {
	case errors.Is(err, ErrUserLimit):
		return nil, apperr.Invalid(fmt.Sprintf("Maximum %d users per tenant allowed", models.MaxUsersPerTenant))
	case errors.Is(err, ErrEmailTaken):
		return nil, apperr.Invalid("Email already registered")
	case err != nil:
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, tenantID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return apperr.Invalid("Cannot delete yourself")
	}
	return s.store.DeleteUser(ctx, tenantID, userID)
}

func (s *Service) publish(ctx context.Context, event string, t *models.Tenant) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"tenant_id":    t.ID,
		"company_name": t.CompanyName,
		"email":        t.Email,
		"status":       t.Status,
	}
	if err := s.events.Publish(ctx, event, payload); err != nil {
		slog.Warn("publish tenant event failed", "event", event, "tenant_id", t.ID, "error", err)
	}
}
