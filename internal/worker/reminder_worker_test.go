package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/worker"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  []service.ReminderRun
	err   error
	calls chan struct{}
}

func (f *fakeRunner) RunReminders(_ context.Context, run service.ReminderRun) (*service.ReminderReport, error) {
	f.mu.Lock()
	f.runs = append(f.runs, run)
	f.mu.Unlock()
	if f.calls != nil {
		select {
		case f.calls <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &service.ReminderReport{Results: []service.ReminderResult{{Sent: true}, {Error: "smtp down"}}}, nil
}

func TestRunOnceUsesWorkerMethodAndWindow(t *testing.T) {
	runner := &fakeRunner{}
	w := worker.NewReminderWorker(runner, time.Minute, 6*time.Hour, nil)
	w.RunOnce(context.Background())

	if len(runner.runs) != 1 {
		t.Fatalf("runs = %d", len(runner.runs))
	}
	got := runner.runs[0]
	if got.Method != domain.ReminderMethodWorker || got.Window != 6*time.Hour || got.DryRun {
		t.Errorf("run = %+v", got)
	}
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("mongo down")}
	w := worker.NewReminderWorker(runner, 0, 0, nil)
	w.RunOnce(context.Background())
	if len(runner.runs) != 1 || runner.runs[0].Window != 24*time.Hour {
		t.Errorf("runs = %+v", runner.runs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	runner := &fakeRunner{calls: make(chan struct{}, 1)}
	w := worker.NewReminderWorker(runner, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-runner.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ran the initial pass")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
