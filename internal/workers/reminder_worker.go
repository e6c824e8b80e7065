package workers

import (
	"context"
	"time"

	"mediplus/internal/scheduler"
)

// ReminderRunner performs one medication reminder pass.
type ReminderRunner interface {
	Run(ctx context.Context, now time.Time) (*scheduler.Report, error)
}

// ReminderWorker drives the medication scheduler from the worker manager.
type ReminderWorker struct {
	runner   ReminderRunner
	interval time.Duration
	now      func() time.Time
}

func NewReminderWorker(runner ReminderRunner, interval time.Duration) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{runner: runner, interval: interval, now: time.Now}
}

func (rw *ReminderWorker) Name() string { return "Medication Reminders" }

func (rw *ReminderWorker) Interval() time.Duration { return rw.interval }

func (rw *ReminderWorker) Run(ctx context.Context) error {
	_, err := rw.runner.Run(ctx, rw.now())
	return err
}
