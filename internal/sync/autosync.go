package sync

import (
	"context"
	"time"

	"github.com/ctukiosk/backend/internal/logging"
)

// AutoSyncInterval is how often the background loop attempts a pass.
const AutoSyncInterval = 5 * time.Minute

// AutoSyncRunner periodically triggers sync passes while the operator
// toggle is on. A pass is skipped when one is already running or the
// remote store is unreachable.
type AutoSyncRunner struct {
	engine   *Engine
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAutoSyncRunner creates a runner over the given engine.
func NewAutoSyncRunner(engine *Engine) *AutoSyncRunner {
	return &AutoSyncRunner{
		engine:   engine,
		interval: AutoSyncInterval,
	}
}

// Start launches the background loop. Calling Start on a running
// runner is a no-op.
func (r *AutoSyncRunner) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)
	logging.Info("auto-sync loop started", logging.Fields{"interval": r.interval.String()})
}

// Stop terminates the background loop and waits for it to exit.
func (r *AutoSyncRunner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *AutoSyncRunner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one auto-sync attempt. All skip conditions are quiet at
// debug level so the loop does not flood the log while offline.
func (r *AutoSyncRunner) tick(ctx context.Context) {
	stats, err := r.engine.Stats()
	if err != nil {
		logging.Error("auto-sync could not read sync state", err)
		return
	}

	switch {
	case !stats.AutoSyncEnabled:
		return
	case !stats.Configured:
		logging.Debug("auto-sync skipped, remote store not configured")
		return
	case stats.Syncing:
		logging.Debug("auto-sync skipped, sync already running")
		return
	case stats.UnsyncedTickets == 0:
		return
	}

	result, err := r.engine.SyncAll(ctx, nil)
	if err != nil {
		logging.Warn("auto-sync pass failed", logging.Fields{"error": err.Error()})
		return
	}
	if result.Failed > 0 {
		logging.Warn("auto-sync pass finished with failures", logging.Fields{
			"synced": result.Synced,
			"failed": result.Failed,
		})
	}
}
