package calendar

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

// Cipher protects tokens at rest.
type Cipher interface {
	EncryptString(s string) (string, error)
	DecryptString(s string) (string, error)
}

type ConnectRequest struct {
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Email        string     `json:"email"`
	IDToken      string     `json:"id_token,omitempty"`
}

type Service struct {
	store     Store
	cipher    Cipher
	identity  IdentityVerifier
	refresher TokenRefresher
	now       func() time.Time
}

func NewService(store Store, cipher Cipher, identity IdentityVerifier, refresher TokenRefresher) *Service {
	return &Service{store: store, cipher: cipher, identity: identity, refresher: refresher, now: time.Now}
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.CalendarConnection, error) {
	return s.store.List(ctx, tenantID)
}

// Connect stores a calendar account for the tenant. When an id_token is
// supplied the account email is taken from the verified token.
func (s *Service) Connect(ctx context.Context, tenantID uuid.UUID, req ConnectRequest) (*models.CalendarConnection, error) {
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Provider != models.ProviderGoogle && req.Provider != models.ProviderMicrosoft {
		return nil, apperr.Invalid("provider must be google or microsoft")
	}
	if req.AccessToken == "" {
		return nil, apperr.Invalid("access_token is required")
	}

	if req.IDToken != "" {
		if s.identity == nil {
			return nil, apperr.Invalid("id_token verification not configured")
		}
		email, err := s.identity.VerifyEmail(ctx, req.Provider, req.IDToken)
		if err != nil {
			slog.Warn("calendar id_token rejected", "provider", req.Provider, "error", err)
			return nil, apperr.Invalid("Invalid id_token")
		}
		if req.Email != "" && req.Email != email {
			return nil, apperr.Invalid("email does not match id_token")
		}
		req.Email = email
	}
	if req.Email == "" {
		return nil, apperr.Invalid("email is required")
	}

	access, err := s.cipher.EncryptString(req.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.cipher.EncryptString(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	c := &models.CalendarConnection{
		TenantID:     tenantID,
		Provider:     req.Provider,
		Email:        req.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Disconnect(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.store.Delete(ctx, tenantID, id)
}

// RefreshExpiring renews every connection whose access token expires within
// the window. Failures are logged per connection and counted.
func (s *Service) RefreshExpiring(ctx context.Context, window time.Duration) (refreshed, failed int, err error) {
	if s.refresher == nil {
		return 0, 0, nil
	}
	conns, err := s.store.ListExpiring(ctx, s.now().Add(window))
	if err != nil {
		return 0, 0, err
	}

	for _, c := range conns {
		if err := s.refreshOne(ctx, c); err != nil {
			failed++
			slog.Warn("calendar token refresh failed", "connection_id", c.ID, "provider", c.Provider, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, failed, nil
}

func (s *Service) refreshOne(ctx context.Context, c models.CalendarConnection) error {
	refreshToken, err := s.cipher.DecryptString(c.RefreshToken)
	if err != nil {
		return err
	}
	tok, err := s.refresher.Refresh(ctx, c.Provider, refreshToken)
	if err != nil {
		return err
	}

	access, err := s.cipher.EncryptString(tok.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.cipher.EncryptString(tok.RefreshToken)
	if err != nil {
		return err
	}
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry.UTC()
		expiry = &e
	}
	return s.store.UpdateTokens(ctx, c.ID, access, refresh, expiry)
}
