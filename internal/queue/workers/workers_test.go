package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/billing"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/queue"
	"github.com/buchungsbutler/voiceagent/internal/webhook"
)

type fakeInvoicer struct {
	sendErr error
	sent    []uuid.UUID
	monthly int
}

func (f *fakeInvoicer) RunMonthly(context.Context, billing.SendScheduler) (billing.MonthlyResult, error) {
	f.monthly++
	return billing.MonthlyResult{Generated: 3}, nil
}

func (f *fakeInvoicer) SendToLexoffice(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	f.sent = append(f.sent, id)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &models.Invoice{ID: id, LexofficeID: "lex"}, nil
}

func sendTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(queue.InvoiceSendPayload{InvoiceID: id})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeInvoiceSend, b)
}

func TestInvoiceWorkerSend(t *testing.T) {
	inv := &fakeInvoicer{}
	w := NewInvoiceWorker(inv, nil)
	id := uuid.New()

	require.NoError(t, w.ProcessSend(context.Background(), sendTask(t, id.String())))
	assert.Equal(t, []uuid.UUID{id}, inv.sent)

	err := w.ProcessSend(context.Background(), sendTask(t, "nope"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInvoiceWorkerSendErrors(t *testing.T) {
	inv := &fakeInvoicer{sendErr: apperr.Conflict("Cannot send invoice with status sent")}
	w := NewInvoiceWorker(inv, nil)
	assert.NoError(t, w.ProcessSend(context.Background(), sendTask(t, uuid.NewString())))

	inv.sendErr = errors.New("lexoffice unavailable")
	assert.Error(t, w.ProcessSend(context.Background(), sendTask(t, uuid.NewString())))
}

func TestInvoiceWorkerMonthly(t *testing.T) {
	inv := &fakeInvoicer{}
	w := NewInvoiceWorker(inv, nil)
	require.NoError(t, w.ProcessMonthly(context.Background(), asynq.NewTask(queue.TypeInvoiceMonthly, nil)))
	assert.Equal(t, 1, inv.monthly)
}

type fakeRefresher struct{ window time.Duration }

func (f *fakeRefresher) RefreshExpiring(_ context.Context, window time.Duration) (int, int, error) {
	f.window = window
	return 1, 0, nil
}

func TestCalendarWorkerWindow(t *testing.T) {
	r := &fakeRefresher{}
	w := NewCalendarWorker(r)

	require.NoError(t, w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeCalendarRefresh, nil)))
	assert.Equal(t, time.Hour, r.window)

	b, _ := json.Marshal(queue.CalendarRefreshPayload{WindowSeconds: 600})
	require.NoError(t, w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeCalendarRefresh, b)))
	assert.Equal(t, 10*time.Minute, r.window)
}

type fakeDeliverer struct {
	got []webhook.Event
	err error
}

func (f *fakeDeliverer) Deliver(_ context.Context, ev webhook.Event) error {
	f.got = append(f.got, ev)
	return f.err
}

func TestWebhookWorker(t *testing.T) {
	d := &fakeDeliverer{}
	w := NewWebhookWorker(d)

	ev, err := webhook.NewEvent("tenant.suspended", map[string]string{"id": "x"})
	require.NoError(t, err)
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeWebhookDeliver, b)))
	require.Len(t, d.got, 1)
	assert.Equal(t, ev.ID, d.got[0].ID)

	d.err = errors.New("503")
	assert.Error(t, w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeWebhookDeliver, b)))

	assert.ErrorIs(t, w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeWebhookDeliver, []byte("{"))), asynq.SkipRetry)
}
