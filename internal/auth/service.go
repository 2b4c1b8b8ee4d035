package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

const defaultCountry = "Deutschland"

type RegisterRequest struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	HouseNumber   string `json:"house_number"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	Country       string `json:"country,omitempty"`
	TaxNumber     string `json:"tax_number,omitempty"`
	VatID         string `json:"vat_id,omitempty"`
	Website       string `json:"website,omitempty"`
	Industry      string `json:"industry,omitempty"`
}

func (r *RegisterRequest) normalize() {
	for _, f := range []*string{&r.CompanyName, &r.ContactPerson, &r.Email, &r.Phone, &r.Street,
		&r.HouseNumber, &r.PostalCode, &r.City, &r.Country, &r.TaxNumber, &r.VatID, &r.Website, &r.Industry} {
		*f = strings.TrimSpace(*f)
	}
	r.Email = strings.ToLower(r.Email)
	if r.Country == "" {
		r.Country = defaultCountry
	}
}

func (r RegisterRequest) validate() error {
	required := []struct{ name, value string }{
		{"company_name", r.CompanyName},
		{"contact_person", r.ContactPerson},
		{"email", r.Email},
		{"password", r.Password},
		{"phone", r.Phone},
		{"street", r.Street},
		{"house_number", r.HouseNumber},
		{"postal_code", r.PostalCode},
		{"city", r.City},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Invalid("Missing required fields: " + strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Invalid("Invalid email address")
	}
	if len(r.Password) < 6 {
		return apperr.Invalid("Password must be at least 6 characters")
	}
	return nil
}

type RegisterResponse struct {
	TenantID    uuid.UUID           `json:"tenant_id"`
	CompanyName string              `json:"company_name"`
	Email       string              `json:"email"`
	Status      models.TenantStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string              `json:"access_token"`
	TokenType    string              `json:"token_type"`
	UserID       uuid.UUID           `json:"user_id"`
	TenantID     *uuid.UUID          `json:"tenant_id"`
	Username     string              `json:"username"`
	Email        string              `json:"email"`
	IsSuperAdmin bool                `json:"is_super_admin"`
	TenantStatus models.TenantStatus `json:"tenant_status"`
}

type Profile struct {
	ID           uuid.UUID           `json:"id"`
	TenantID     *uuid.UUID          `json:"tenant_id"`
	Email        string              `json:"email"`
	Username     string              `json:"username"`
	IsActive     bool                `json:"is_active"`
	IsAdmin      bool                `json:"is_admin"`
	IsSuperAdmin bool                `json:"is_super_admin"`
	TenantStatus models.TenantStatus `json:"tenant_status"`
	CreatedAt    time.Time           `json:"created_at"`
}

type Service struct {
	store   Store
	tokens  *Tokens
	revoked Revocations
	events  tenant.EventPublisher
}

func NewService(store Store, tokens *Tokens, revoked Revocations, events tenant.EventPublisher) *Service {
	return &Service{store: store, tokens: tokens, revoked: revoked, events: events}
}

// Register creates a pending tenant and its owner account. No session is
// issued; the owner signs in separately and is routed by tenant status.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Invalid("Email already registered")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	t := &models.Tenant{
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Street:        req.Street,
		HouseNumber:   req.HouseNumber,
		PostalCode:    req.PostalCode,
		City:          req.City,
		Country:       req.Country,
		TaxNumber:     req.TaxNumber,
		VatID:         req.VatID,
		Website:       req.Website,
		Industry:      req.Industry,
		Status:        models.TenantPending,
	}
	owner := &models.User{
		Email:        req.Email,
		Username:     req.ContactPerson,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	}

	if err := s.store.CreateTenantWithOwner(ctx, t, owner); err != nil {
		if errors.Is(err, tenant.ErrEmailTaken) {
			return nil, apperr.Invalid("Email already registered")
		}
		return nil, err
	}

	slog.Info("tenant registered", "tenant_id", t.ID, "company", t.CompanyName)
	if s.events != nil {
		payload := map[string]any{"tenant_id": t.ID, "company_name": t.CompanyName, "email": t.Email, "status": t.Status}
		if err := s.events.Publish(ctx, tenant.EventRegistered, payload); err != nil {
			slog.Warn("publish registration event failed", "tenant_id", t.ID, "error", err)
		}
	}

	return &RegisterResponse{
		TenantID:    t.ID,
		CompanyName: t.CompanyName,
		Email:       t.Email,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}, nil
}

// Login verifies credentials and issues an access token. Members of pending,
// rejected and suspended tenants still receive a token so the client can show
// them the matching notice page.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("Account disabled")
	}

	status, err := s.tenantStatus(ctx, user)
	if err != nil {
		return nil, err
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  token,
		TokenType:    "bearer",
		UserID:       user.ID,
		TenantID:     user.TenantID,
		Username:     user.Username,
		Email:        user.Email,
		IsSuperAdmin: user.IsSuperAdmin,
		TenantStatus: status,
	}, nil
}

// Me builds the profile of the authenticated principal.
func (s *Service) Me(ctx context.Context, user *models.User, t *models.Tenant) *Profile {
	status := models.TenantApproved
	if t != nil {
		status = t.Status
	}
	return &Profile{
		ID:           user.ID,
		TenantID:     user.TenantID,
		Email:        user.Email,
		Username:     user.Username,
		IsActive:     user.IsActive,
		IsAdmin:      user.IsAdmin,
		IsSuperAdmin: user.IsSuperAdmin,
		TenantStatus: status,
		CreatedAt:    user.CreatedAt,
	}
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || s.revoked == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoked.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Super-admins have no tenant and are always treated as approved.
func (s *Service) tenantStatus(ctx context.Context, user *models.User) (models.TenantStatus, error) {
	if user.TenantID == nil {
		return models.TenantApproved, nil
	}
	t, err := s.store.GetTenant(ctx, *user.TenantID)
	if err != nil {
		return "", fmt.Errorf("load tenant for login: %w", err)
	}
	return t.Status, nil
}
