package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverSignsPayload(t *testing.T) {
	var (
		body    []byte
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ev, err := NewEvent("tenant.approved", map[string]string{"tenant_id": "t-1"})
	require.NoError(t, err)

	d := NewDispatcher(srv.URL, "s3cret")
	require.NoError(t, d.Deliver(context.Background(), ev))

	assert.Equal(t, "tenant.approved", headers.Get(HeaderEvent))
	assert.Equal(t, ev.ID.String(), headers.Get(HeaderID))
	assert.True(t, Verify(body, "s3cret", headers.Get(HeaderSignature)))
	assert.False(t, Verify(body, "other", headers.Get(HeaderSignature)))

	var got Event
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "tenant.approved", got.Type)
	assert.JSONEq(t, `{"tenant_id":"t-1"}`, string(got.Data))
}

func TestDeliverReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ev, err := NewEvent("invoice.sent", nil)
	require.NoError(t, err)

	err = NewDispatcher(srv.URL, "").Deliver(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDeliverDisabled(t *testing.T) {
	d := NewDispatcher("", "")
	assert.False(t, d.Enabled())
	ev, err := NewEvent("tenant.registered", nil)
	require.NoError(t, err)
	assert.NoError(t, d.Deliver(context.Background(), ev))
}

func TestSignKnownValue(t *testing.T) {
	assert.Equal(t,
		"sha256=a777724d943eb48dc69bca8a4a6d57a04db3f9ec7e1de4e581e860265bdf3032",
		Sign([]byte("{}"), "key"))
}
