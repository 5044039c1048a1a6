// Package worker runs background jobs inside the API process.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// ReminderRunner executes one reminder pass.
type ReminderRunner interface {
	RunReminders(ctx context.Context, run service.ReminderRun) (*service.ReminderReport, error)
}

// ReminderWorker sends routine maintenance reminders on a fixed interval.
type ReminderWorker struct {
	runner   ReminderRunner
	interval time.Duration
	window   time.Duration
	logger   *zap.Logger
}

// NewReminderWorker builds a worker. Non-positive durations fall back to
// hourly runs over a one-day window.
func NewReminderWorker(runner ReminderRunner, interval, window time.Duration, logger *zap.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderWorker{runner: runner, interval: interval, window: window, logger: logger.Named("reminders")}
}

// Run blocks until ctx is cancelled, running one pass immediately and then
// one per interval.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", zap.Duration("interval", w.interval), zap.Duration("window", w.window))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and logs its outcome.
func (w *ReminderWorker) RunOnce(ctx context.Context) {
	report, err := w.runner.RunReminders(ctx, service.ReminderRun{
		Window: w.window,
		Method: domain.ReminderMethodWorker,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("reminder pass failed", zap.Error(err))
		return
	}
	sent := 0
	for _, res := range report.Results {
		if res.Sent {
			sent++
		}
	}
	w.logger.Info("reminder pass complete",
		zap.Int("schedules", len(report.Results)),
		zap.Int("sent", sent),
		zap.Int("failed", report.Failed()),
	)
}
