// Package session owns the client-side authentication state. The Provider
// is its only mutator; everything else reads immutable View snapshots.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/pkg/client"
)

type Provider struct {
	api   *client.Client
	store CredentialStore

	mu      sync.RWMutex
	loading bool
	token   string
	profile *Profile
}

// NewProvider returns a provider in the loading state. Call Init before use.
func NewProvider(api *client.Client, store CredentialStore) *Provider {
	return &Provider{api: api, store: store, loading: true}
}

// Init rehydrates the session from the persisted credential. Without one no
// request is made. A failed profile fetch removes the credential and leaves
// the session unauthenticated; the fetch error is returned for reporting.
func (p *Provider) Init(ctx context.Context) error {
	token, err := p.store.Load()
	if err != nil {
		p.reset()
		return fmt.Errorf("load credential: %w", err)
	}
	if token == "" {
		p.reset()
		return nil
	}

	profile, err := p.fetch(ctx, token)
	if err != nil {
		p.expire()
		return err
	}

	p.mu.Lock()
	p.token, p.profile, p.loading = token, profile, false
	p.mu.Unlock()
	return nil
}

// Login authenticates and persists the credential. Errors from the server are
// returned unchanged and leave the session as it was.
func (p *Provider) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	resp, err := p.api.Login(ctx, client.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	profile, err := profileFromLogin(resp)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	p.token, p.profile, p.loading = resp.AccessToken, profile, false
	return resp, nil
}

// Register submits a tenant registration. The new tenant is pending, so no
// session is established.
func (p *Provider) Register(ctx context.Context, req client.RegisterRequest) (*client.RegisterResponse, error) {
	return p.api.Register(ctx, req)
}

// Logout drops the session unconditionally. Server-side revocation is
// attempted afterwards and its outcome ignored.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.token, p.profile, p.loading = "", nil, false
	clearErr := p.store.Clear()
	p.mu.Unlock()

	if token != "" {
		if err := p.api.WithToken(token).Logout(ctx); err != nil {
			slog.Debug("server logout failed", "error", err)
		}
	}
	if clearErr != nil {
		return fmt.Errorf("clear credential: %w", clearErr)
	}
	return nil
}

// Refresh re-fetches the profile. It is the only way a tenant status change
// made by an administrator becomes visible in a running session. A failure
// ends the session, unless a newer login replaced the credential meanwhile.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token == "" {
		return nil
	}

	profile, err := p.fetch(ctx, token)
	if err != nil {
		p.expireIfCurrent(token)
		return err
	}

	p.mu.Lock()
	if p.token == token {
		p.profile = profile
	}
	p.mu.Unlock()
	return nil
}

func (p *Provider) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := View{Loading: p.loading}
	if p.token != "" && p.profile != nil {
		v.IsAuthenticated = true
		v.IsSuperAdmin = p.profile.IsSuperAdmin
		v.TenantStatus = p.profile.TenantStatus
	}
	return v
}

// Profile returns a copy of the cached profile.
func (p *Provider) Profile() (Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return Profile{}, false
	}
	return *p.profile, true
}

// AuthHeader returns the Authorization header value, or "" when signed out.
func (p *Provider) AuthHeader() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == "" {
		return ""
	}
	return "Bearer " + p.token
}

// Client returns an API client carrying the current credential.
func (p *Provider) Client() *client.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.api.WithToken(p.token)
}

func (p *Provider) fetch(ctx context.Context, token string) (*Profile, error) {
	me, err := p.api.WithToken(token).Me(ctx)
	if err != nil {
		return nil, err
	}
	return profileFromMe(me)
}

func (p *Provider) reset() {
	p.mu.Lock()
	p.token, p.profile, p.loading = "", nil, false
	p.mu.Unlock()
}

func (p *Provider) expire() {
	p.reset()
	if err := p.store.Clear(); err != nil {
		slog.Warn("clear expired credential", "error", err)
	}
}

func (p *Provider) expireIfCurrent(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != token {
		return
	}
	p.token, p.profile, p.loading = "", nil, false
	if err := p.store.Clear(); err != nil {
		slog.Warn("clear expired credential", "error", err)
	}
}

func profileFromLogin(r *client.LoginResponse) (*Profile, error) {
	id, tenantID, err := parseIDs(r.UserID, r.TenantID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:           id,
		TenantID:     tenantID,
		Username:     r.Username,
		Email:        r.Email,
		IsSuperAdmin: r.IsSuperAdmin,
		TenantStatus: TenantStatus(r.TenantStatus),
	}, nil
}

func profileFromMe(m *client.Profile) (*Profile, error) {
	id, tenantID, err := parseIDs(m.ID, m.TenantID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:           id,
		TenantID:     tenantID,
		Username:     m.Username,
		Email:        m.Email,
		IsSuperAdmin: m.IsSuperAdmin,
		TenantStatus: TenantStatus(m.TenantStatus),
	}, nil
}

func parseIDs(userID string, tenantID *string) (uuid.UUID, *uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: user id: %v", client.ErrMalformedResponse, err)
	}
	if tenantID == nil || *tenantID == "" {
		return id, nil, nil
	}
	tid, err := uuid.Parse(*tenantID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: tenant id: %v", client.ErrMalformedResponse, err)
	}
	return id, &tid, nil
}
