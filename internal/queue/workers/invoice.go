package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/billing"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/queue"
)

type Invoicer interface {
	RunMonthly(ctx context.Context, sends billing.SendScheduler) (billing.MonthlyResult, error)
	SendToLexoffice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
}

type InvoiceWorker struct {
	invoices Invoicer
	sends    billing.SendScheduler
}

func NewInvoiceWorker(invoices Invoicer, sends billing.SendScheduler) *InvoiceWorker {
	return &InvoiceWorker{invoices: invoices, sends: sends}
}

func (w *InvoiceWorker) ProcessMonthly(ctx context.Context, _ *asynq.Task) error {
	res, err := w.invoices.RunMonthly(ctx, w.sends)
	if err != nil {
		return err
	}
	slog.Info("monthly invoicing finished", "generated", res.Generated, "queued", res.Queued, "failed", res.Failed)
	return nil
}

func (w *InvoiceWorker) ProcessSend(ctx context.Context, t *asynq.Task) error {
	var payload queue.InvoiceSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q: %w", payload.InvoiceID, asynq.SkipRetry)
	}

	inv, err := w.invoices.SendToLexoffice(ctx, id)
	switch {
	case err == nil:
		slog.Info("invoice sent to lexoffice", "invoice_id", inv.ID, "lexoffice_id", inv.LexofficeID)
		return nil
	case apperr.Is(err, apperr.CodeConflict), apperr.Is(err, apperr.CodeNotFound), apperr.Is(err, apperr.CodeInvalid):
		// Retrying cannot change the outcome.
		slog.Warn("invoice not sent", "invoice_id", id, "error", err)
		return nil
	default:
		return err
	}
}
