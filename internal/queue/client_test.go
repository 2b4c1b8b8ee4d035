package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buchungsbutler/voiceagent/internal/webhook"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: QueueDefault, Type: task.Type()}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func TestPublishEnqueuesWebhookEvent(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := &Client{client: rec}

	require.NoError(t, c.Publish(context.Background(), "tenant.registered", map[string]string{"company_name": "Praxis"}))
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, TypeWebhookDeliver, rec.tasks[0].Type())

	var ev webhook.Event
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &ev))
	assert.Equal(t, "tenant.registered", ev.Type)
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.JSONEq(t, `{"company_name":"Praxis"}`, string(ev.Data))
}

func TestEnqueueInvoiceSend(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := &Client{client: rec}
	id := uuid.New()

	require.NoError(t, c.EnqueueInvoiceSend(context.Background(), id))
	require.NoError(t, c.EnqueueCalendarRefresh(context.Background(), time.Hour))

	var p InvoiceSendPayload
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &p))
	assert.Equal(t, id.String(), p.InvoiceID)

	var cp CalendarRefreshPayload
	require.NoError(t, json.Unmarshal(rec.tasks[1].Payload(), &cp))
	assert.Equal(t, 3600, cp.WindowSeconds)
}

func TestEnqueueInvoiceSendAlreadyQueued(t *testing.T) {
	c := &Client{client: &recordingEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, c.EnqueueInvoiceSend(context.Background(), uuid.New()))

	c = &Client{client: &recordingEnqueuer{err: asynq.ErrDuplicateTask}}
	assert.Error(t, c.EnqueueInvoiceSend(context.Background(), uuid.New()))
}

func TestSchedulesAreValid(t *testing.T) {
	types := map[string]bool{}
	for _, s := range Schedules {
		types[s.Type] = true
		assert.NotEmpty(t, s.Cron)
	}
	assert.True(t, types[TypeInvoiceMonthly])
	assert.True(t, types[TypeCalendarRefresh])
}
