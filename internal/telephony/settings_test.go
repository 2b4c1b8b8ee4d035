package telephony

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string]string

func (m memStore) All(context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

func (m memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStore) Put(_ context.Context, values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}

type reverseCipher struct{}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func (reverseCipher) EncryptString(s string) (string, error) { return "x:" + reverse(s), nil }
func (reverseCipher) DecryptString(s string) (string, error) {
	return reverse(strings.TrimPrefix(s, "x:")), nil
}

func TestStatusEmpty(t *testing.T) {
	svc := NewService(memStore{}, reverseCipher{})
	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Twilio.Configured)
	assert.False(t, st.Sipgate.Configured)
	assert.False(t, st.Lexoffice.Configured)

	key, err := svc.LexofficeKey(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestUpdateOnlyProvidedKeys(t *testing.T) {
	store := memStore{}
	svc := NewService(store, reverseCipher{})

	st, err := svc.Update(context.Background(), map[string]string{
		KeyTwilioSID:   "AC123",
		KeyTwilioToken: "tok",
		KeyTwilioPhone: "+4930123456",
		"unknown":      "ignored",
	})
	require.NoError(t, err)
	assert.True(t, st.Twilio.Configured)
	assert.Equal(t, "+4930123456", st.Twilio.PhoneNumber)
	assert.False(t, st.Lexoffice.Configured)
	assert.NotContains(t, store, "unknown")
	assert.Equal(t, "x:321CA", store[KeyTwilioSID])

	_, err = svc.Update(context.Background(), map[string]string{KeyLexoffice: "lex-key", KeyTwilioSID: "  "})
	require.NoError(t, err)
	assert.Equal(t, "x:321CA", store[KeyTwilioSID])

	key, err := svc.LexofficeKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lex-key", key)
}
