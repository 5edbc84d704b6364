package worker

import (
	"context"
	"errors"
	"time"

	"cadence/internal/classify"
	"cadence/internal/logging"
)

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.logger.Info("worker started",
		logging.String("extractor", w.extractor.Name()),
		logging.String("strategy", w.classifier.Name()),
		logging.String(logging.FieldEventType, "worker_started"),
	)

	idleTicks := 0
	claimFailures := 0
	modelWaits := 0

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped",
				logging.String(logging.FieldEventType, "worker_stopped"))
			return
		default:
		}

		if err := w.heartbeat.reclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("reclaim stale processing failed; stuck tasks may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			)
		}

		claimCtx, cancelClaim := w.boundedStoreCtx(ctx)
		task, err := w.store.ClaimNextPending(claimCtx)
		cancelClaim()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			claimFailures++
			w.setLastError(err)
			w.logger.Error("failed to claim next task",
				logging.Error(err),
				logging.Int("consecutive_failures", claimFailures),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
			)
			if !w.sleep(ctx, w.reconnectDelay(claimFailures)) {
				return
			}
			continue
		}
		claimFailures = 0

		if task == nil {
			idleTicks++
			if !w.sleep(ctx, w.idleDelay(idleTicks)) {
				return
			}
			continue
		}
		idleTicks = 0

		// Tasks run on the task context so Stop never aborts one
		// mid-pipeline; only parent-context cancellation does.
		err = w.processTask(w.taskCtx, task)
		switch {
		case err == nil:
			modelWaits = 0
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, classify.ErrModelUnavailable):
			// The task was released, not errored. Back off like a lost
			// store connection until the artifact shows up.
			modelWaits++
			if !w.sleep(ctx, w.reconnectDelay(modelWaits)) {
				return
			}
		default:
			// processTask already recorded the task outcome; pace the
			// loop so a systemic fault does not spin through the queue.
			if !w.sleep(ctx, w.errorRetry) {
				return
			}
		}
	}
}

// boundedStoreCtx caps one store call at the configured connect timeout.
func (w *Worker) boundedStoreCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.connectTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, w.connectTimeout)
}

// idleDelay grows linearly with consecutive empty polls and saturates at
// the configured ceiling. The first empty poll waits one poll interval.
func (w *Worker) idleDelay(idleTicks int) time.Duration {
	if idleTicks < 1 {
		idleTicks = 1
	}
	delay := time.Duration(idleTicks) * w.pollInterval
	if delay > w.maxIdleBackoff {
		delay = w.maxIdleBackoff
	}
	return delay
}

// reconnectDelay doubles with consecutive claim failures between the
// configured base and ceiling.
func (w *Worker) reconnectDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := w.reconnectBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= w.reconnectMax {
			return w.reconnectMax
		}
	}
	if delay > w.reconnectMax {
		delay = w.reconnectMax
	}
	return delay
}

// sleepCtx waits for the delay or context cancellation, reporting false
// when the context ended first.
func sleepCtx(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
