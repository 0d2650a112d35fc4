package worker

import (
	"context"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
)

// IdentityRefresher re-verifies stored user mappings against the platform
type IdentityRefresher interface {
	RefreshAllMappings(ctx context.Context) (int, error)
}

// MappingResyncWorker manages background resync of user mappings against
// the Rocket.Chat platform
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type MappingResyncWorker struct {
	identity IdentityRefresher
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMappingResyncWorker creates a new worker for resyncing user mappings
func NewMappingResyncWorker(identity IdentityRefresher, interval time.Duration) *MappingResyncWorker {
	return &MappingResyncWorker{
		identity: identity,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background resync loop
// - Initial resync and periodic resyncs both run in a background goroutine
// - Does not block server startup
func (w *MappingResyncWorker) Start(ctx context.Context) error {
	logging.Default().Info("mapping resync worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *MappingResyncWorker) Stop() {
	logging.Default().Info("mapping resync worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("mapping resync worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *MappingResyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.resync(ctx); err != nil {
		logging.Default().Error("initial mapping resync failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.resync(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("mapping resync failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("mapping resync worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("mapping resync worker context cancelled")
			return
		}
	}
}

// resync performs a single resync cycle
func (w *MappingResyncWorker) resync(ctx context.Context) error {
	start := time.Now()

	refreshed, err := w.identity.RefreshAllMappings(ctx)
	if err != nil {
		return err
	}

	logging.Default().Info("mapping resync completed",
		"refreshed", refreshed,
		"duration", time.Since(start).String())
	return nil
}
