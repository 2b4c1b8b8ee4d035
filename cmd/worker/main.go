package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/buchungsbutler/voiceagent/internal/billing"
	"github.com/buchungsbutler/voiceagent/internal/calendar"
	"github.com/buchungsbutler/voiceagent/internal/config"
	"github.com/buchungsbutler/voiceagent/internal/crypto"
	"github.com/buchungsbutler/voiceagent/internal/database"
	"github.com/buchungsbutler/voiceagent/internal/queue"
	"github.com/buchungsbutler/voiceagent/internal/queue/workers"
	"github.com/buchungsbutler/voiceagent/internal/telephony"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
	"github.com/buchungsbutler/voiceagent/internal/usage"
	"github.com/buchungsbutler/voiceagent/internal/webhook"
)

const concurrency = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	crypter, err := crypto.New(cfg.EncryptionKeyBytes())
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return err
	}

	jobs := queue.NewClient(cfg.Redis)
	defer jobs.Close()

	var events billing.EventPublisher = queue.LogPublisher{}
	if cfg.Webhook.URL != "" {
		events = jobs
	}

	settings := telephony.NewService(telephony.NewPGStore(db), crypter)
	billingSvc := billing.NewService(
		billing.NewPGStore(db),
		usage.NewService(usage.NewPGStore(db)),
		tenant.NewPGStore(db),
		settings,
		billing.NewLexofficeClient(cfg.Billing.LexofficeBaseURL),
		events,
		billing.Config{TaxRate: cfg.Billing.TaxRate, Location: loc},
	)
	calendars := calendar.NewService(
		calendar.NewPGStore(db),
		crypter,
		calendar.NewOIDCVerifier(ctx, cfg.OAuth.GoogleClientID, cfg.OAuth.MicrosoftClientID, cfg.OAuth.MicrosoftTenant),
		calendar.NewOAuthRefresher(cfg.OAuth),
	)

	invoiceWorker := workers.NewInvoiceWorker(billingSvc, jobs)
	calendarWorker := workers.NewCalendarWorker(calendars)
	webhookWorker := workers.NewWebhookWorker(webhook.NewDispatcher(cfg.Webhook.URL, cfg.Webhook.Secret))

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeInvoiceMonthly, asynq.HandlerFunc(invoiceWorker.ProcessMonthly))
	registry.Register(queue.TypeInvoiceSend, asynq.HandlerFunc(invoiceWorker.ProcessSend))
	registry.Register(queue.TypeCalendarRefresh, asynq.HandlerFunc(calendarWorker.ProcessTask))
	registry.Register(queue.TypeWebhookDeliver, asynq.HandlerFunc(webhookWorker.ProcessTask))

	redisOpt := queue.RedisOpt(cfg.Redis)
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue.QueueCritical: 6,
			queue.QueueDefault:  3,
			queue.QueueLow:      1,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: loc})
	if err := queue.RegisterSchedules(scheduler); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting worker", "concurrency", concurrency)
		return srv.Start(registry.Mux())
	})
	g.Go(func() error {
		slog.Info("starting scheduler", "timezone", loc.String())
		return scheduler.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		return nil
	})
	return g.Wait()
}
