package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/buchungsbutler/voiceagent/internal/config"
	"github.com/buchungsbutler/voiceagent/internal/webhook"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type Client struct {
	client enqueuer
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Publish queues a platform webhook event. It satisfies the event publisher
// interfaces of the tenant and billing services.
func (c *Client) Publish(ctx context.Context, event string, payload any) error {
	ev, err := webhook.NewEvent(event, payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, TypeWebhookDeliver, ev,
		asynq.Queue(QueueLow), asynq.MaxRetry(5), asynq.Timeout(30*time.Second), asynq.TaskID(ev.ID.String()))
}

// EnqueueInvoiceSend queues delivery of one invoice. A delivery already queued
// for the invoice is left alone.
func (c *Client) EnqueueInvoiceSend(ctx context.Context, invoiceID uuid.UUID) error {
	return c.enqueue(ctx, TypeInvoiceSend, InvoiceSendPayload{InvoiceID: invoiceID.String()},
		asynq.Queue(QueueCritical), asynq.MaxRetry(5), asynq.Timeout(2*time.Minute),
		asynq.TaskID("invoice-send-"+invoiceID.String()))
}

func (c *Client) EnqueueMonthlyInvoices(ctx context.Context) error {
	return c.enqueue(ctx, TypeInvoiceMonthly, struct{}{}, asynq.Queue(QueueDefault), asynq.MaxRetry(2), asynq.Timeout(30*time.Minute))
}

func (c *Client) EnqueueCalendarRefresh(ctx context.Context, window time.Duration) error {
	return c.enqueue(ctx, TypeCalendarRefresh, CalendarRefreshPayload{WindowSeconds: int(window.Seconds())},
		asynq.Queue(QueueDefault), asynq.MaxRetry(1), asynq.Timeout(10*time.Minute))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Debug("task already queued", "type", taskType)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	slog.Debug("task enqueued", "type", taskType, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// LogPublisher stands in for Client when no webhook endpoint is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event string, _ any) error {
	slog.Info("platform event", "event", event)
	return nil
}
