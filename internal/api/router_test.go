package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/internal/appointment"
	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/audit"
	"github.com/buchungsbutler/voiceagent/internal/auth"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type directory struct {
	users   map[uuid.UUID]*models.User
	tenants map[uuid.UUID]*models.Tenant
}

func (d *directory) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func (d *directory) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, ok := d.tenants[id]
	if !ok {
		return nil, apperr.NotFound("Tenant not found")
	}
	return t, nil
}

type tenantService struct {
	dir *directory
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.dir.GetTenant(ctx, id)
}

func (s *tenantService) Update(ctx context.Context, id uuid.UUID, upd models.TenantUpdate) (*models.Tenant, error) {
	t, err := s.dir.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(t)
	return t, nil
}

func (s *tenantService) Stats(context.Context, uuid.UUID) (*models.TenantStats, error) {
	return &models.TenantStats{Appointments: 3}, nil
}

func (s *tenantService) ListUsers(_ context.Context, tenantID uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, u := range s.dir.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *tenantService) CreateUser(ctx context.Context, tenantID uuid.UUID, in tenant.CreateUserInput) (*models.User, error) {
	users, _ := s.ListUsers(ctx, tenantID)
	if len(users) >= models.MaxUsersPerTenant {
		return nil, apperr.Invalid("Maximum 2 users per tenant allowed")
	}
	u := &models.User{ID: uuid.New(), TenantID: &tenantID, Email: in.Email, Username: in.Username, IsActive: true}
	s.dir.users[u.ID] = u
	return u, nil
}

func (s *tenantService) DeleteUser(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error { return nil }

func (s *tenantService) List(context.Context, models.TenantStatus) ([]models.Tenant, error) {
	return nil, nil
}

func (s *tenantService) Transition(ctx context.Context, id uuid.UUID, _ tenant.Action) (*models.Tenant, error) {
	return s.dir.GetTenant(ctx, id)
}

func (s *tenantService) AssignPlan(ctx context.Context, id uuid.UUID, _ *uuid.UUID) (*models.Tenant, error) {
	return s.dir.GetTenant(ctx, id)
}

type statsService struct{}

func (statsService) Platform(context.Context) (*models.PlatformStats, error) {
	return &models.PlatformStats{TotalTenants: 4}, nil
}

type auditService struct{ actions []string }

func (a *auditService) Record(_ context.Context, e audit.LogEntry) { a.actions = append(a.actions, e.Action) }
func (a *auditService) List(context.Context, audit.Query) ([]models.AuditLog, error) {
	return []models.AuditLog{}, nil
}
func (a *auditService) UsageSummary(context.Context, *uuid.UUID, *time.Time, *time.Time) ([]audit.UsageSummary, error) {
	return nil, nil
}

type appointmentService struct{}

func (appointmentService) List(context.Context, uuid.UUID) ([]models.Appointment, error) {
	return []models.Appointment{}, nil
}

func (appointmentService) Create(_ context.Context, tenantID, userID uuid.UUID, req appointment.CreateRequest) (*models.Appointment, error) {
	return &models.Appointment{ID: uuid.New(), TenantID: tenantID, Title: req.Title}, nil
}

func (appointmentService) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type harness struct {
	handler http.Handler
	tokens  *auth.Tokens
	dir     *directory
	audit   *auditService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := &directory{users: map[uuid.UUID]*models.User{}, tenants: map[uuid.UUID]*models.Tenant{}}
	tokens := auth.NewTokens("test-secret", time.Hour)
	au := &auditService{}

	deps := Deps{
		AllowedOrigins: []string{"*"},
		JWT:            auth.NewJWTMiddleware(tokens, dir, nil),
		Ingest:         auth.NewIngestKeyMiddleware("ingest"),
		Auth:           auth.NewService(nil, tokens, nil, nil),
		Tenants:        &tenantService{dir: dir},
		Appointments:   appointmentService{},
		Stats:          statsService{},
		Audit:          au,
	}
	return &harness{handler: NewRouter(deps).Setup(), tokens: tokens, dir: dir, audit: au}
}

func (h *harness) tenantUser(t *testing.T, status models.TenantStatus) string {
	t.Helper()
	tn := &models.Tenant{ID: uuid.New(), CompanyName: "Praxis", Status: status}
	h.dir.tenants[tn.ID] = tn
	u := &models.User{ID: uuid.New(), TenantID: &tn.ID, Email: uuid.NewString() + "@example.com", IsActive: true, IsAdmin: true}
	h.dir.users[u.ID] = u
	token, _, err := h.tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func (h *harness) superAdmin(t *testing.T) string {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: "admin@buchungsbutler.de", IsActive: true, IsSuperAdmin: true}
	h.dir.users[u.ID] = u
	token, _, err := h.tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func (h *harness) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestRootAndHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Voice Agent API","version":"1.0.0"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticated(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/auth/me", "/api/tenant", "/api/appointments", "/api/admin/stats"} {
		rec := h.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Not authenticated", detail(t, rec), path)
	}

	rec := h.do(http.MethodGet, "/api/tenant", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", detail(t, rec))
}

func TestAccessByStatus(t *testing.T) {
	h := newHarness(t)
	tokens := map[string]string{
		"pending":   h.tenantUser(t, models.TenantPending),
		"rejected":  h.tenantUser(t, models.TenantRejected),
		"suspended": h.tenantUser(t, models.TenantSuspended),
		"approved":  h.tenantUser(t, models.TenantApproved),
		"super":     h.superAdmin(t),
	}

	tests := []struct {
		who    string
		method string
		path   string
		status int
		detail string
	}{
		{"pending", http.MethodGet, "/api/auth/me", http.StatusOK, ""},
		{"pending", http.MethodGet, "/api/tenant", http.StatusOK, ""},
		{"pending", http.MethodGet, "/api/stats", http.StatusOK, ""},
		{"pending", http.MethodGet, "/api/appointments", http.StatusForbidden, "Tenant not approved"},
		{"rejected", http.MethodGet, "/api/users", http.StatusForbidden, "Tenant not approved"},
		{"suspended", http.MethodPut, "/api/tenant?name=Neu", http.StatusForbidden, "Tenant not approved"},
		{"pending", http.MethodGet, "/api/admin/stats", http.StatusForbidden, "Super admin access required"},
		{"approved", http.MethodGet, "/api/appointments", http.StatusOK, ""},
		{"approved", http.MethodPut, "/api/tenant?name=Neu", http.StatusOK, ""},
		{"approved", http.MethodGet, "/api/admin/tenants", http.StatusForbidden, "Super admin access required"},
		{"super", http.MethodGet, "/api/auth/me", http.StatusOK, ""},
		{"super", http.MethodGet, "/api/admin/stats", http.StatusOK, ""},
		{"super", http.MethodGet, "/api/tenant", http.StatusForbidden, "Tenant account required"},
		{"super", http.MethodGet, "/api/appointments", http.StatusForbidden, "Tenant account required"},
	}
	for _, tt := range tests {
		t.Run(tt.who+" "+tt.method+" "+tt.path, func(t *testing.T) {
			rec := h.do(tt.method, tt.path, tokens[tt.who], "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, detail(t, rec))
			}
		})
	}
}

func TestMeReportsStatus(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/auth/me", h.tenantUser(t, models.TenantPending), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile auth.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, models.TenantPending, profile.TenantStatus)
	assert.False(t, profile.IsSuperAdmin)
}

func TestThirdUserRejected(t *testing.T) {
	h := newHarness(t)
	token := h.tenantUser(t, models.TenantApproved)

	rec := h.do(http.MethodPost, "/api/users", token, `{"email":"b@example.com","username":"b","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/users", token, `{"email":"c@example.com","username":"c","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Maximum 2 users per tenant allowed", detail(t, rec))

	rec = h.do(http.MethodGet, "/api/users", token, "")
	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestAdminTransitionIsAudited(t *testing.T) {
	h := newHarness(t)
	h.tenantUser(t, models.TenantPending)
	var tenantID uuid.UUID
	for id := range h.dir.tenants {
		tenantID = id
	}

	rec := h.do(http.MethodPost, "/api/admin/tenants/"+tenantID.String()+"/approve", h.superAdmin(t), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tenant.approve"}, h.audit.actions)

	rec = h.do(http.MethodPost, "/api/admin/tenants/not-a-uuid/approve", h.superAdmin(t), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsageIngestRequiresKey(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/telephony/usage", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
