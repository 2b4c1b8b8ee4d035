package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/pkg/client"
	"github.com/buchungsbutler/voiceagent/pkg/routeguard"
	"github.com/buchungsbutler/voiceagent/pkg/session"
)

type fakeAPI struct {
	calls   atomic.Int32
	logouts atomic.Int32

	mu       sync.Mutex
	status   string
	super    bool
	meFails  bool
	users    int
	userID   string
	tenantID string
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newFakeAPI(status string) *fakeAPI {
	return &fakeAPI{status: status, userID: uuid.NewString(), tenantID: uuid.NewString()}
}

func (f *fakeAPI) serve(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		authed := r.Header.Get("Authorization") == "Bearer t1"

		switch r.URL.Path {
		case "/api/auth/login":
			var req client.LoginRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "richtig" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "t1", "token_type": "bearer", "user_id": f.userID,
				"tenant_id": f.tenantID, "username": "Julia", "email": req.Email,
				"is_super_admin": f.super, "tenant_status": f.status,
			})
		case "/api/auth/me":
			if !authed || f.meFails {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid token"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id": f.userID, "tenant_id": f.tenantID, "username": "Julia",
				"email": "julia@praxis.de", "is_super_admin": f.super, "tenant_status": f.status,
			})
		case "/api/auth/logout":
			f.logouts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Internal server error"})
		case "/api/users":
			if f.users >= 2 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Maximum 2 users per tenant allowed"})
				return
			}
			f.users++
			json.NewEncoder(w).Encode(map[string]any{"id": uuid.NewString(), "email": "x@praxis.de"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func TestLoginOutcomeDrivesRoute(t *testing.T) {
	tests := []struct {
		status string
		path   string
		want   routeguard.Decision
	}{
		{"approved", "/dashboard", routeguard.Decision{Action: routeguard.Render}},
		{"pending", "/dashboard", routeguard.Decision{Action: routeguard.Redirect, To: routeguard.RoutePending}},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			api := newFakeAPI(tt.status)
			p := session.NewProvider(api.serve(t), session.NewMemoryStore(""))
			require.NoError(t, p.Init(context.Background()))

			resp, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
			require.NoError(t, err)
			assert.Equal(t, "t1", resp.AccessToken)

			assert.Equal(t, tt.want, routeguard.Resolve(tt.path, p.View()))
			assert.Equal(t, "Bearer t1", p.AuthHeader())
		})
	}
}

func TestLoginThenLoginPageRedirects(t *testing.T) {
	api := newFakeAPI("approved")
	p := session.NewProvider(api.serve(t), session.NewMemoryStore(""))
	require.NoError(t, p.Init(context.Background()))

	assert.Equal(t, routeguard.Decision{Action: routeguard.Redirect, To: routeguard.RouteLogin}, routeguard.Resolve("/dashboard", p.View()))

	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)
	assert.Equal(t, routeguard.Decision{Action: routeguard.Redirect, To: routeguard.RouteDashboard}, routeguard.Resolve("/login", p.View()))
}

func TestLoginErrorPropagates(t *testing.T) {
	api := newFakeAPI("approved")
	store := session.NewMemoryStore("")
	p := session.NewProvider(api.serve(t), store)
	require.NoError(t, p.Init(context.Background()))

	_, err := p.Login(context.Background(), "julia@praxis.de", "falsch")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Detail)

	assert.False(t, p.View().IsAuthenticated)
	token, _ := store.Load()
	assert.Empty(t, token)
}

func TestLogoutClearsCredential(t *testing.T) {
	api := newFakeAPI("approved")
	c := api.serve(t)
	store := session.NewMemoryStore("")
	p := session.NewProvider(c, store)
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)

	// The server rejects the revocation; logout still succeeds.
	require.NoError(t, p.Logout(context.Background()))
	assert.EqualValues(t, 1, api.logouts.Load())
	assert.False(t, p.View().IsAuthenticated)
	assert.Empty(t, p.AuthHeader())
	token, _ := store.Load()
	assert.Empty(t, token)

	before := api.calls.Load()
	restarted := session.NewProvider(c, store)
	require.NoError(t, restarted.Init(context.Background()))
	assert.Equal(t, before, api.calls.Load(), "init without credential must not hit the network")
	assert.Equal(t, session.View{}, restarted.View())
}

func TestInitRehydrates(t *testing.T) {
	api := newFakeAPI("suspended")
	p := session.NewProvider(api.serve(t), session.NewMemoryStore("t1"))
	assert.True(t, p.View().Loading)

	require.NoError(t, p.Init(context.Background()))
	v := p.View()
	assert.False(t, v.Loading)
	assert.True(t, v.IsAuthenticated)
	assert.Equal(t, session.StatusSuspended, v.TenantStatus)

	profile, ok := p.Profile()
	require.True(t, ok)
	assert.Equal(t, "Julia", profile.Username)
	require.NotNil(t, profile.TenantID)
	assert.Equal(t, api.tenantID, profile.TenantID.String())
}

func TestInitFailsClosed(t *testing.T) {
	api := newFakeAPI("approved")
	api.meFails = true
	store := session.NewMemoryStore("stale")
	p := session.NewProvider(api.serve(t), store)

	err := p.Init(context.Background())
	require.Error(t, err)

	v := p.View()
	assert.False(t, v.Loading)
	assert.False(t, v.IsAuthenticated)
	token, _ := store.Load()
	assert.Empty(t, token)
	assert.Equal(t, routeguard.Decision{Action: routeguard.Redirect, To: routeguard.RouteLogin}, routeguard.Resolve("/dashboard", v))
}

func TestStatusChangeVisibleAfterRefresh(t *testing.T) {
	api := newFakeAPI("pending")
	p := session.NewProvider(api.serve(t), session.NewMemoryStore(""))
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)

	api.set(func(f *fakeAPI) { f.status = "approved" })
	assert.Equal(t, session.StatusPending, p.View().TenantStatus)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, session.StatusApproved, p.View().TenantStatus)
}

func TestRefreshFailureEndsSession(t *testing.T) {
	api := newFakeAPI("approved")
	store := session.NewMemoryStore("")
	p := session.NewProvider(api.serve(t), store)
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)

	api.set(func(f *fakeAPI) { f.meFails = true })
	require.Error(t, p.Refresh(context.Background()))
	assert.False(t, p.View().IsAuthenticated)
	token, _ := store.Load()
	assert.Empty(t, token)
}

func TestStaleRefreshKeepsNewerLogin(t *testing.T) {
	var logins atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			n := logins.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "t" + string(rune('0'+n)), "token_type": "bearer",
				"user_id": uuid.NewString(), "tenant_id": uuid.NewString(), "username": "Julia",
				"email": "julia@praxis.de", "tenant_status": "approved",
			})
		case "/api/auth/me":
			close(entered)
			<-release
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid token"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore("")
	p := session.NewProvider(client.New(srv.URL), store)
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)

	refreshed := make(chan error, 1)
	go func() { refreshed <- p.Refresh(context.Background()) }()

	<-entered
	_, err = p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)
	close(release)
	assert.Error(t, <-refreshed)

	assert.True(t, p.View().IsAuthenticated)
	assert.Equal(t, "Bearer t2", p.AuthHeader())
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "t2", token)
}

func TestSuperAdminSession(t *testing.T) {
	api := newFakeAPI("approved")
	api.super = true
	p := session.NewProvider(api.serve(t), session.NewMemoryStore(""))
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "admin@buchungsbutler.de", "richtig")
	require.NoError(t, err)

	assert.Equal(t, routeguard.RouteAdmin, routeguard.ResolveDestination(p.View()))
}

func TestThirdUserSurfacesError(t *testing.T) {
	api := newFakeAPI("approved")
	api.users = 2
	p := session.NewProvider(api.serve(t), session.NewMemoryStore(""))
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Login(context.Background(), "julia@praxis.de", "richtig")
	require.NoError(t, err)

	_, err = p.Client().CreateUser(context.Background(), client.CreateUserRequest{Email: "c@praxis.de", Username: "c", Password: "geheim1"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Detail, "Maximum 2 users"))
	api.set(func(f *fakeAPI) { assert.Equal(t, 2, f.users) })
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	store, err := session.OpenBoltStore(path)
	require.NoError(t, err)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("t1"))
	require.NoError(t, store.Close())

	store, err = session.OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}
