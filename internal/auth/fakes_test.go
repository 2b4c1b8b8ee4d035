package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[uuid.UUID]*models.User{}, tenants: map[uuid.UUID]*models.Tenant{}}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (f *fakeStore) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("Tenant not found")
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeStore) CreateTenantWithOwner(_ context.Context, t *models.Tenant, owner *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	owner.ID = uuid.New()
	owner.TenantID = &t.ID
	f.tenants[t.ID] = t
	f.users[owner.ID] = owner
	return nil
}

func (f *fakeStore) CountSuperAdmins(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		if u.IsSuperAdmin {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateSuperAdmin(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = uuid.New()
	u.IsActive = true
	u.IsAdmin = true
	u.IsSuperAdmin = true
	f.users[u.ID] = u
	return nil
}

// addUser stores a user with a pre-hashed password.
func (f *fakeStore) addUser(t *models.Tenant, email, password string, super bool) *models.User {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &models.User{ID: uuid.New(), Email: email, Username: "user", PasswordHash: hash, IsActive: true, IsSuperAdmin: super}
	f.mu.Lock()
	defer f.mu.Unlock()
	if t != nil {
		f.tenants[t.ID] = t
		u.TenantID = &t.ID
	}
	f.users[u.ID] = u
	return u
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: map[string]time.Time{}}
}

func (r *fakeRevocations) RevokeToken(_ context.Context, jti string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = exp
	return nil
}

func (r *fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(_ context.Context, event string, _ any) error {
	p.events = append(p.events, event)
	return nil
}
