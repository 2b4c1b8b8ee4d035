package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/buchungsbutler/voiceagent/internal/api"
	"github.com/buchungsbutler/voiceagent/internal/api/handlers"
	"github.com/buchungsbutler/voiceagent/internal/api/middleware"
	"github.com/buchungsbutler/voiceagent/internal/appointment"
	"github.com/buchungsbutler/voiceagent/internal/audit"
	"github.com/buchungsbutler/voiceagent/internal/auth"
	"github.com/buchungsbutler/voiceagent/internal/billing"
	"github.com/buchungsbutler/voiceagent/internal/cache"
	"github.com/buchungsbutler/voiceagent/internal/calendar"
	"github.com/buchungsbutler/voiceagent/internal/config"
	"github.com/buchungsbutler/voiceagent/internal/conversation"
	"github.com/buchungsbutler/voiceagent/internal/crypto"
	"github.com/buchungsbutler/voiceagent/internal/database"
	"github.com/buchungsbutler/voiceagent/internal/guardrails"
	"github.com/buchungsbutler/voiceagent/internal/llm"
	"github.com/buchungsbutler/voiceagent/internal/queue"
	"github.com/buchungsbutler/voiceagent/internal/stats"
	"github.com/buchungsbutler/voiceagent/internal/telephony"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
	"github.com/buchungsbutler/voiceagent/internal/usage"
	"github.com/buchungsbutler/voiceagent/internal/voice"
	"github.com/buchungsbutler/voiceagent/internal/voice/stt"
	"github.com/buchungsbutler/voiceagent/internal/voice/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, token revocation and stats caching degraded", "error", err)
	}
	kv := cache.NewCache(rdb)

	crypter, err := crypto.New(cfg.EncryptionKeyBytes())
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return err
	}

	var events interface {
		Publish(ctx context.Context, event string, payload any) error
	} = queue.LogPublisher{}
	jobs := queue.NewClient(cfg.Redis)
	defer jobs.Close()
	if cfg.Webhook.URL != "" {
		events = jobs
	}

	tenantStore := tenant.NewPGStore(db)
	authStore := auth.NewPGStore(db)
	auth.SeedSuperAdmin(ctx, authStore, cfg.Auth.SeedAdminEmail, cfg.Auth.SeedAdminPassword)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auditSvc := audit.NewService(audit.NewPGStore(db))
	appts := appointment.NewService(appointment.NewPGStore(db))
	convs := conversation.NewService(conversation.NewPGStore(db))
	usageSvc := usage.NewService(usage.NewPGStore(db))
	settings := telephony.NewService(telephony.NewPGStore(db), crypter)

	calendars := calendar.NewService(
		calendar.NewPGStore(db),
		crypter,
		calendar.NewOIDCVerifier(ctx, cfg.OAuth.GoogleClientID, cfg.OAuth.MicrosoftClientID, cfg.OAuth.MicrosoftTenant),
		calendar.NewOAuthRefresher(cfg.OAuth),
	)

	billingSvc := billing.NewService(
		billing.NewPGStore(db),
		usageSvc,
		tenantStore,
		settings,
		billing.NewLexofficeClient(cfg.Billing.LexofficeBaseURL),
		events,
		billing.Config{TaxRate: cfg.Billing.TaxRate, Location: loc},
	)

	voiceSvc := voice.NewService(
		newSTT(cfg.STT),
		newTTS(cfg.TTS),
		llm.NewGateway(cfg.LLM),
		appts,
		convs,
		auditSvc,
		voice.Config{Language: cfg.STT.Language, Voice: cfg.TTS.Voice, Location: loc, ContextLimit: appointment.ContextLimit},
	).WithGuard(guardrails.DefaultPipeline(voice.MaxTranscriptRunes))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	voiceLimiter := middleware.NewKeyedRateLimiter(cfg.Server.VoiceRPS, cfg.Server.VoiceBurst, middleware.KeyByTenant)

	router := api.NewRouter(api.Deps{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimiter:    limiter,
		VoiceLimiter:   voiceLimiter,
		JWT:            auth.NewJWTMiddleware(tokens, tenantStore, kv),
		Ingest:         auth.NewIngestKeyMiddleware(cfg.Auth.IngestKey),
		Health:         map[string]handlers.Pinger{"postgres": db, "redis": kv},
		Auth:           auth.NewService(authStore, tokens, kv, events),
		Tenants:        tenant.NewService(tenantStore, auth.HashPassword, events),
		Appointments:   appts,
		Calendars:      calendars,
		Conversations:  convs,
		Voice:          voiceSvc,
		Usage:          usageSvc,
		Billing:        billingSvc,
		Telephony:      settings,
		Stats:          stats.NewService(stats.NewPGStore(db), kv),
		Audit:          auditSvc,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.Cleanup(gctx)
		return nil
	})
	g.Go(func() error {
		voiceLimiter.Cleanup(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSTT(cfg config.STTConfig) stt.Provider {
	if cfg.Backend == "local" {
		return stt.NewLocalSTT(cfg.LocalBaseURL)
	}
	return stt.NewOpenAISTT(stt.OpenAIConfig{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})
}

func newTTS(cfg config.TTSConfig) tts.Provider {
	if cfg.Backend == "local" {
		return tts.NewLocalTTS(tts.LocalConfig{PiperBinPath: cfg.LocalBinPath, ModelPath: cfg.LocalModel})
	}
	return tts.NewOpenAITTS(tts.OpenAIConfig{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel, Voice: cfg.Voice})
}
