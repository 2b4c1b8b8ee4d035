package tenant

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
	users   map[uuid.UUID]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: map[uuid.UUID]*models.Tenant{},
		users:   map[uuid.UUID]*models.User{},
	}
}

func (f *fakeStore) addTenant(status models.TenantStatus) *models.Tenant {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &models.Tenant{ID: uuid.New(), CompanyName: "Friseur Müller", Email: "info@mueller.de", Status: status, CreatedAt: time.Now()}
	f.tenants[t.ID] = t
	return t
}

func (f *fakeStore) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, apperr.NotFound("Tenant not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTenants(_ context.Context, status models.TenantStatus) ([]models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tenant
	for _, t := range f.tenants {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTenant(_ context.Context, t *models.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[t.ID]; !ok {
		return apperr.NotFound("Tenant not found")
	}
	cp := *t
	f.tenants[t.ID] = &cp
	return nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uuid.UUID, from []models.TenantStatus, to models.TenantStatus) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, apperr.NotFound("Tenant not found")
	}
	if !slices.Contains(from, t.Status) {
		return nil, ErrStatusConflict
	}
	t.Status = to
	cp := *t
	return &cp, nil
}

func (f *fakeStore) SetPricingPlan(_ context.Context, id uuid.UUID, planID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return apperr.NotFound("Tenant not found")
	}
	t.PricingPlanID = planID
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func (f *fakeStore) ListUsers(_ context.Context, tenantID uuid.UUID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.TenantID != nil && *existing.TenantID == *u.TenantID {
			count++
		}
	}
	if count >= limit {
		return ErrUserLimit
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, tenantID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || u.TenantID == nil || *u.TenantID != tenantID {
		return apperr.NotFound("User not found")
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeStore) Stats(_ context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	users, _ := f.ListUsers(context.Background(), tenantID)
	return &models.TenantStats{Users: len(users)}, nil
}

type recordedEvent struct {
	name    string
	payload any
}

type fakePublisher struct {
	events []recordedEvent
}

func (p *fakePublisher) Publish(_ context.Context, event string, payload any) error {
	p.events = append(p.events, recordedEvent{name: event, payload: payload})
	return nil
}

func plainHash(p string) (string, error) { return "hashed:" + p, nil }

func newTestService() (*Service, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	pub := &fakePublisher{}
	return NewService(store, plainHash, pub), store, pub
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.TenantStatus
		action  Action
		want    models.TenantStatus
		wantErr apperr.Code
	}{
		{"approve pending", models.TenantPending, ActionApprove, models.TenantApproved, ""},
		{"reactivate suspended", models.TenantSuspended, ActionApprove, models.TenantApproved, ""},
		{"reject pending", models.TenantPending, ActionReject, models.TenantRejected, ""},
		{"suspend approved", models.TenantApproved, ActionSuspend, models.TenantSuspended, ""},
		{"approve rejected", models.TenantRejected, ActionApprove, "", apperr.CodeConflict},
		{"reject approved", models.TenantApproved, ActionReject, "", apperr.CodeConflict},
		{"suspend pending", models.TenantPending, ActionSuspend, "", apperr.CodeConflict},
		{"approve approved", models.TenantApproved, ActionApprove, "", apperr.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newTestService()
			tn := store.addTenant(tt.from)

			got, err := svc.Transition(context.Background(), tn.ID, tt.action)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, tt.wantErr))
				assert.Empty(t, pub.events)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			require.Len(t, pub.events, 1)
		})
	}
}

func TestTransitionEvents(t *testing.T) {
	svc, store, pub := newTestService()
	tn := store.addTenant(models.TenantPending)

	_, err := svc.Transition(context.Background(), tn.ID, ActionApprove)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), tn.ID, ActionSuspend)
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, EventApproved, pub.events[0].name)
	assert.Equal(t, EventSuspended, pub.events[1].name)
}

func TestTransitionUnknownTenant(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Transition(context.Background(), uuid.New(), ActionApprove)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestCreateUserLimit(t *testing.T) {
	svc, store, _ := newTestService()
	tn := store.addTenant(models.TenantApproved)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "a@mueller.de", Username: "anna", Password: "secret1"})
	require.NoError(t, err)
	u2, err := svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "B@Mueller.de ", Username: "ben", Password: "secret2"})
	require.NoError(t, err)
	assert.Equal(t, "b@mueller.de", u2.Email)
	assert.Equal(t, "hashed:secret2", u2.PasswordHash)

	_, err = svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "c@mueller.de", Username: "carla", Password: "secret3"})
	require.Error(t, err)
	status, msg := apperr.HTTPStatus(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "Maximum 2 users per tenant allowed", msg)

	users, err := svc.ListUsers(ctx, tn.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCreateUserValidation(t *testing.T) {
	svc, store, _ := newTestService()
	tn := store.addTenant(models.TenantApproved)

	cases := map[string]CreateUserInput{
		"missing username": {Email: "a@b.de", Password: "secret1"},
		"bad email":        {Email: "nope", Username: "x", Password: "secret1"},
		"short password":   {Email: "a@b.de", Username: "x", Password: "123"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tn.ID, in)
			assert.True(t, apperr.Is(err, apperr.CodeInvalid))
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService()
	tn := store.addTenant(models.TenantApproved)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "a@mueller.de", Username: "anna", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "a@mueller.de", Username: "anna2", Password: "secret1"})
	_, msg := apperr.HTTPStatus(err)
	assert.Equal(t, "Email already registered", msg)
}

func TestDeleteUser(t *testing.T) {
	svc, store, _ := newTestService()
	tn := store.addTenant(models.TenantApproved)
	ctx := context.Background()

	owner, err := svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "a@mueller.de", Username: "anna", Password: "secret1"})
	require.NoError(t, err)
	other, err := svc.CreateUser(ctx, tn.ID, CreateUserInput{Email: "b@mueller.de", Username: "ben", Password: "secret1"})
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, tn.ID, owner.ID, owner.ID)
	_, msg := apperr.HTTPStatus(err)
	assert.Equal(t, "Cannot delete yourself", msg)

	require.NoError(t, svc.DeleteUser(ctx, tn.ID, owner.ID, other.ID))
	assert.True(t, apperr.Is(svc.DeleteUser(ctx, tn.ID, owner.ID, other.ID), apperr.CodeNotFound))
}

func TestUpdate(t *testing.T) {
	svc, store, _ := newTestService()
	tn := store.addTenant(models.TenantApproved)

	name := "Salon Müller GmbH"
	city := "Köln"
	got, err := svc.Update(context.Background(), tn.ID, models.TenantUpdate{CompanyName: &name, City: &city})
	require.NoError(t, err)
	assert.Equal(t, name, got.CompanyName)
	assert.Equal(t, city, got.City)
	assert.Equal(t, "info@mueller.de", got.Email)

	empty := " "
	_, err = svc.Update(context.Background(), tn.ID, models.TenantUpdate{CompanyName: &empty})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc, store, _ := newTestService()
	store.addTenant(models.TenantPending)
	store.addTenant(models.TenantApproved)

	pending, err := svc.List(context.Background(), models.TenantPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.List(context.Background(), "archived")
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}
