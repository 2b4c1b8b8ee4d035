package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

type fakeStore struct {
	logs    []models.AuditLog
	usage   []models.LLMUsageLog
	lastQry Query
}

func (f *fakeStore) Insert(_ context.Context, l *models.AuditLog) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeStore) List(_ context.Context, q Query) ([]models.AuditLog, error) {
	f.lastQry = q
	return f.logs, nil
}

func (f *fakeStore) InsertLLMUsage(_ context.Context, rec *models.LLMUsageLog) error {
	f.usage = append(f.usage, *rec)
	return nil
}

func (f *fakeStore) UsageSummary(context.Context, *uuid.UUID, *time.Time, *time.Time) ([]UsageSummary, error) {
	return nil, nil
}

func TestLogUsesActorFromContext(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	admin := &models.User{ID: uuid.New(), Email: "admin@buchungsbutler.de", IsSuperAdmin: true}
	ctx := tenant.WithUser(context.Background(), admin)
	resource := uuid.New()

	require.NoError(t, svc.Log(ctx, LogEntry{
		Action:       "tenant.approve",
		ResourceType: "tenant",
		ResourceID:   &resource,
		Details:      map[string]any{"from": "pending"},
		IPAddress:    "203.0.113.7",
	}))

	require.Len(t, store.logs, 1)
	l := store.logs[0]
	assert.Equal(t, admin.ID, *l.ActorID)
	assert.Equal(t, "admin@buchungsbutler.de", l.ActorEmail)
	assert.Equal(t, resource, *l.ResourceID)
	require.NotNil(t, l.IPAddress)
	assert.Equal(t, "203.0.113.7", l.IPAddress.String())

	var details map[string]string
	require.NoError(t, json.Unmarshal(l.Details, &details))
	assert.Equal(t, "pending", details["from"])
}

func TestLogWithoutActorOrIP(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	svc.Record(context.Background(), LogEntry{Action: "invoice.monthly", IPAddress: "not-an-ip"})
	require.Len(t, store.logs, 1)
	assert.Nil(t, store.logs[0].ActorID)
	assert.Nil(t, store.logs[0].IPAddress)
	assert.JSONEq(t, "{}", string(store.logs[0].Details))
}

func TestListClampsLimit(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	_, err := svc.List(context.Background(), Query{Limit: 10000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastQry.Limit)
	assert.Zero(t, store.lastQry.Offset)
}

func TestLogLLMUsage(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	err := svc.LogLLMUsage(context.Background(), models.LLMUsageLog{Provider: "openai", Model: "gpt-4o"})
	require.Error(t, err)

	tn := &models.Tenant{ID: uuid.New()}
	user := &models.User{ID: uuid.New()}
	ctx := tenant.WithUser(tenant.WithTenant(context.Background(), tn), user)

	require.NoError(t, svc.LogLLMUsage(ctx, models.LLMUsageLog{Provider: "openai", Model: "gpt-4o", InputTokens: 120}))
	require.Len(t, store.usage, 1)
	assert.Equal(t, tn.ID, store.usage[0].TenantID)
	assert.Equal(t, user.ID, *store.usage[0].UserID)
}
