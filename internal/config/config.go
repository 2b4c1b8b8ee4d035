package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Security SecurityConfig
	LLM      LLMConfig
	STT      STTConfig
	TTS      TTSConfig
	Billing  BillingConfig
	Webhook  WebhookConfig
	OAuth    OAuthConfig
	LogLevel string
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	VoiceRPS       float64
	VoiceBurst     int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	SeedAdminEmail    string
	SeedAdminPassword string
	IngestKey         string
}

type SecurityConfig struct {
	// EncryptionKey protects calendar tokens and telephony credentials at rest.
	EncryptionKey string
}

type LLMConfig struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	FallbackModel    string
	MaxRetries       int
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Language      string
	LocalBaseURL  string // default: "http://localhost:8178/v1"
}

type TTSConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Voice         string
	LocalBinPath  string // default: "piper"
	LocalModel    string // required when backend=local
}

type BillingConfig struct {
	LexofficeBaseURL string
	TaxRate          float64
	Timezone         string
}

type WebhookConfig struct {
	URL    string
	Secret string
}

type OAuthConfig struct {
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8001)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	voiceRPS, err := getEnvFloat("VOICE_RATE_LIMIT_RPS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_RATE_LIMIT_RPS: %w", err)
	}

	voiceBurst, err := getEnvInt("VOICE_RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_RATE_LIMIT_BURST: %w", err)
	}

	taxRate, err := getEnvFloat("BILLING_TAX_RATE", 0.19)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TAX_RATE: %w", err)
	}

	tokenTTL, err := getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
			VoiceRPS:       voiceRPS,
			VoiceBurst:     voiceBurst,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenTTL:          tokenTTL,
			SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
			SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			IngestKey:         getEnv("USAGE_INGEST_KEY", ""),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        openAIKey,
			OpenAIBaseURL:    getEnv("LLM_OPENAI_BASE_URL", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			FallbackModel:    getEnv("LLM_FALLBACK_MODEL", "claude-sonnet-4-20250514"),
			MaxRetries:       maxRetries,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			Language:      getEnv("STT_LANGUAGE", "de"),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178/v1"),
		},
		TTS: TTSConfig{
			Backend:       getEnv("TTS_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("TTS_OPENAI_MODEL", ""),
			Voice:         getEnv("TTS_VOICE", "nova"),
			LocalBinPath:  getEnv("TTS_LOCAL_PIPER_BIN", "piper"),
			LocalModel:    getEnv("TTS_LOCAL_PIPER_MODEL", ""),
		},
		Billing: BillingConfig{
			LexofficeBaseURL: getEnv("LEXOFFICE_BASE_URL", "https://api.lexoffice.io"),
			TaxRate:          taxRate,
			Timezone:         getEnv("BILLING_TIMEZONE", "Europe/Berlin"),
		},
		Webhook: WebhookConfig{
			URL:    getEnv("PLATFORM_WEBHOOK_URL", ""),
			Secret: getEnv("PLATFORM_WEBHOOK_SECRET", ""),
		},
		OAuth: OAuthConfig{
			GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
			MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
			MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
			MicrosoftTenant:       getEnv("MICROSOFT_TENANT", "common"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Security.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if len(c.Security.EncryptionKey) < 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be at least 32 characters")
	}
	return nil
}

// EncryptionKeyBytes returns the first 32 bytes of the configured key.
func (c *Config) EncryptionKeyBytes() []byte {
	key := make([]byte, 32)
	copy(key, c.Security.EncryptionKey)
	return key
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
