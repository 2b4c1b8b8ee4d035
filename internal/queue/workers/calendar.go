package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/buchungsbutler/voiceagent/internal/queue"
)

const defaultRefreshWindow = time.Hour

type TokenRefresher interface {
	RefreshExpiring(ctx context.Context, window time.Duration) (refreshed, failed int, err error)
}

type CalendarWorker struct {
	calendars TokenRefresher
}

func NewCalendarWorker(calendars TokenRefresher) *CalendarWorker {
	return &CalendarWorker{calendars: calendars}
}

func (w *CalendarWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	window := defaultRefreshWindow
	if len(t.Payload()) > 0 {
		var payload queue.CalendarRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err == nil && payload.WindowSeconds > 0 {
			window = time.Duration(payload.WindowSeconds) * time.Second
		}
	}

	refreshed, failed, err := w.calendars.RefreshExpiring(ctx, window)
	if err != nil {
		return err
	}
	slog.Info("calendar tokens refreshed", "refreshed", refreshed, "failed", failed, "window", window.String())
	return nil
}
