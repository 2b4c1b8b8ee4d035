package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/pkg/client"
	"github.com/buchungsbutler/voiceagent/pkg/session"
)

func newCLI(t *testing.T, status string) (*cli, *bytes.Buffer) {
	t.Helper()
	userID := uuid.NewString()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/me":
			json.NewEncoder(w).Encode(map[string]any{"id": userID, "username": "Julia", "email": "julia@praxis.de", "tenant_status": status})
		case "/api/stats":
			json.NewEncoder(w).Encode(map[string]int{"appointments": 7})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	p := session.NewProvider(client.New(srv.URL), session.NewMemoryStore("t1"))
	require.NoError(t, p.Init(context.Background()))
	out := &bytes.Buffer{}
	return &cli{provider: p, out: out}, out
}

func TestRouteCommand(t *testing.T) {
	c, out := newCLI(t, "pending")
	require.NoError(t, c.dispatch(context.Background(), []string{"route", "/dashboard"}))
	assert.Equal(t, "/dashboard (tenant): redirect /pending\n", out.String())
}

func TestStatsRespectsGuard(t *testing.T) {
	c, _ := newCLI(t, "pending")
	err := c.dispatch(context.Background(), []string{"stats"})
	assert.ErrorContains(t, err, "not available")

	c, out := newCLI(t, "approved")
	require.NoError(t, c.dispatch(context.Background(), []string{"stats"}))
	assert.Contains(t, out.String(), "appointments")
	assert.Contains(t, out.String(), "7")
}

func TestAdminRequiresSuperAdmin(t *testing.T) {
	c, _ := newCLI(t, "approved")
	err := c.dispatch(context.Background(), []string{"admin", "stats"})
	assert.ErrorContains(t, err, "/admin")
}

func TestWhoami(t *testing.T) {
	c, out := newCLI(t, "approved")
	require.NoError(t, c.dispatch(context.Background(), []string{"whoami"}))
	assert.Contains(t, out.String(), "julia@praxis.de")
	assert.Contains(t, out.String(), "/dashboard")
}

func TestUnknownCommand(t *testing.T) {
	c, _ := newCLI(t, "approved")
	assert.Error(t, c.dispatch(context.Background(), []string{"frobnicate"}))
}

func TestSessionFile(t *testing.T) {
	path, err := sessionFile("/tmp/custom.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)

	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err = sessionFile("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".voiceagent", "session.db"), path)

	t.Setenv("HOME", "")
	_, err = sessionFile("")
	assert.ErrorContains(t, err, "pass -session")
}
