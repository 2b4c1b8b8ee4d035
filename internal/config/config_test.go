package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.InDelta(t, 0.19, cfg.Billing.TaxRate, 1e-9)
	assert.Equal(t, "nova", cfg.TTS.Voice)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://app.buchungsbutler.de, https://admin.buchungsbutler.de ,")
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, []string{"https://app.buchungsbutler.de", "https://admin.buchungsbutler.de"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "sk-test", cfg.STT.OpenAIKey)
	assert.Equal(t, "sk-test", cfg.TTS.OpenAIKey)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")

	cfg.Database.URL = "postgres://localhost/voiceagent"
	cfg.Auth.JWTSecret = "secret"
	cfg.Security.EncryptionKey = "too-short"
	require.Error(t, cfg.Validate())

	cfg.Security.EncryptionKey = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.EncryptionKeyBytes(), 32)
}
