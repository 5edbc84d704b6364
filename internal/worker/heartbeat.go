package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cadence/internal/logging"
	"cadence/internal/queue"
)

// heartbeatMonitor keeps claimed tasks visibly alive and returns tasks
// whose owner stopped heartbeating to the pending state.
type heartbeatMonitor struct {
	store        *queue.Store
	logger       *slog.Logger
	interval     time.Duration
	timeout      time.Duration
	storeTimeout time.Duration
}

func newHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout, storeTimeout time.Duration) *heartbeatMonitor {
	return &heartbeatMonitor{
		store:        store,
		logger:       logger,
		interval:     interval,
		timeout:      timeout,
		storeTimeout: storeTimeout,
	}
}

// storeCtx caps one store call at the configured connect timeout.
func (h *heartbeatMonitor) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.storeTimeout)
}

// reclaimStale resets processing tasks whose last heartbeat predates the
// timeout. A timeout of zero disables reclamation.
func (h *heartbeatMonitor) reclaimStale(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.timeout)
	callCtx, cancel := h.storeCtx(ctx)
	reclaimed, err := h.store.ReclaimStaleProcessing(callCtx, cutoff)
	cancel()
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale tasks", logging.Int64("count", reclaimed))
	}
	return nil
}

// loop stamps the task's heartbeat until the context is cancelled.
func (h *heartbeatMonitor) loop(ctx context.Context, wg *sync.WaitGroup, taskID string) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(
		logging.String(logging.FieldComponent, "worker-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := h.storeCtx(ctx)
			err := h.store.UpdateHeartbeat(callCtx, taskID)
			cancel()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
