package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/buchungsbutler/voiceagent/internal/webhook"
)

type Deliverer interface {
	Deliver(ctx context.Context, ev webhook.Event) error
}

type WebhookWorker struct {
	deliverer Deliverer
}

func NewWebhookWorker(d Deliverer) *WebhookWorker {
	return &WebhookWorker{deliverer: d}
}

func (w *WebhookWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var ev webhook.Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w: %w", err, asynq.SkipRetry)
	}
	return w.deliverer.Deliver(ctx, ev)
}
