package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// SweepProcessor runs the force sweep on a schedule, standing in for the
// daily scheduled job that executes every request whose grace period has
// elapsed.
type SweepProcessor struct {
	deps ExecuteDeletionDeps
}

// NewSweepProcessor creates a sweep processor around the engine dependencies.
func NewSweepProcessor(deps ExecuteDeletionDeps) *SweepProcessor {
	return &SweepProcessor{deps: deps}
}

// ProcessOverdue executes every overdue deletion request.
// POST: Each overdue request is completed or left for a later sweep
func (p *SweepProcessor) ProcessOverdue(ctx context.Context) error {
	result, err := ExecuteAccountDeletion(ctx, ExecuteDeletionInput{Force: true}, p.deps)
	if err != nil {
		return err
	}
	if len(result.Outcomes) > 0 || len(result.Failures) > 0 {
		slog.Info("privacy_event", "event", "sweep_finished",
			"completed", len(result.Outcomes), "failed", len(result.Failures))
	}
	return nil
}

// StartSweepWorker starts a background goroutine that sweeps overdue deletion
// requests at the given interval until stopCh is closed.
func StartSweepWorker(processor *SweepProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessOverdue(ctx); err != nil {
					slog.Error("sweep_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("sweep_background_worker_stopped")
				return
			}
		}
	}()
}
