package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// sweepTimeout bounds a single sweep pass; a stuck scan must not pile
// up behind the ticker.
const sweepTimeout = time.Minute

// Runner invokes the sweep on a fixed interval until its context is
// cancelled. It is the only in-process caller of Sweep; the maintenance
// endpoint triggers the same operation on demand.
type Runner struct {
	svc      Service
	interval time.Duration
}

func NewRunner(svc Service, interval time.Duration) *Runner {
	return &Runner{svc: svc, interval: interval}
}

// Run blocks until ctx is cancelled. Intended to be started as a
// goroutine from main.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("cleanup sweep runner started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup sweep runner stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
			deleted, err := r.svc.Sweep(sweepCtx, time.Now().UTC())
			cancel()
			if err != nil {
				slog.Error("cleanup sweep failed", "err", err)
				continue
			}
			if deleted > 0 {
				slog.Info("cleanup sweep removed expired tokens", "deleted", deleted)
			}
		}
	}
}
