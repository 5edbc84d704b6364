package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cadence/internal/blob"
	"cadence/internal/classify"
	"cadence/internal/logging"
	"cadence/internal/queue"
	"cadence/internal/wavio"
)

// processTask runs one claimed task through decode, extraction, and
// classification, then records the outcome. Failures inside the task mark
// it errored and never escape to crash the loop, except an unavailable
// model artifact, which releases the task back to pending for a later
// attempt. Loop-level problems (context cancellation, the terminal write
// itself failing, a released task) are returned so the loop can pace.
func (w *Worker) processTask(ctx context.Context, task *queue.Task) error {
	taskCtx := logging.WithTaskID(ctx, task.ID)
	logger := logging.WithContext(taskCtx, w.logger).With(
		logging.String(logging.FieldBlobID, task.BlobID),
	)

	logger.Info("task claimed",
		logging.String("filename", task.Filename),
		logging.String("source", string(task.Source)),
		logging.String(logging.FieldEventType, "task_claimed"),
	)

	hbCtx, stopHeartbeat := context.WithCancel(taskCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go w.heartbeat.loop(hbCtx, &hbWG, task.ID)

	label, confidence, taskErr := w.classifyBlob(taskCtx, task)

	// The heartbeat must be quiet before the terminal write so it cannot
	// stamp a row that is no longer processing.
	stopHeartbeat()
	hbWG.Wait()

	if taskErr != nil {
		if errors.Is(taskErr, context.Canceled) {
			// The daemon's root context died mid-task: leave the row
			// processing, the stale reclaim pass will return it to pending.
			return taskErr
		}
		if errors.Is(taskErr, classify.ErrModelUnavailable) {
			// Not the task's fault: the classifier cannot serve anyone
			// until the artifact loads. Put the task back for later
			// instead of burning it.
			logger.Warn("classifier not ready, task released",
				logging.Error(taskErr),
				logging.String(logging.FieldEventType, "task_released"),
			)
			if err := w.store.Release(ctx, task.ID); err != nil {
				w.setLastError(err)
				logger.Error("failed to release task",
					logging.Error(err),
					logging.String(logging.FieldEventType, "task_release_failed"),
				)
			}
			return taskErr
		}
		logger.Error("task failed",
			logging.Error(taskErr),
			logging.String(logging.FieldEventType, "task_failed"),
		)
		if err := w.store.MarkError(ctx, task.ID, taskErr.Error()); err != nil {
			w.setLastError(err)
			logger.Error("failed to record task error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_error_write_failed"),
			)
			return err
		}
		return taskErr
	}

	if err := w.store.MarkDone(ctx, task.ID, label, confidence); err != nil {
		w.setLastError(err)
		logger.Error("failed to record task result",
			logging.Error(err),
			logging.String(logging.FieldEventType, "task_result_write_failed"),
		)
		return err
	}

	logger.Info("task classified",
		logging.String("label", label),
		logging.Float64("confidence", confidence),
		logging.String(logging.FieldEventType, "task_classified"),
	)
	return nil
}

// classifyBlob runs the analysis pipeline for one task.
func (w *Worker) classifyBlob(ctx context.Context, task *queue.Task) (string, float64, error) {
	data, err := w.blobs.Get(ctx, task.BlobID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return "", 0, fmt.Errorf("audio blob %s not found", task.BlobID)
		}
		return "", 0, fmt.Errorf("fetch audio blob: %w", err)
	}

	clip, err := wavio.DecodeMono(data)
	if err != nil {
		return "", 0, fmt.Errorf("decode audio: %w", err)
	}

	vector, err := w.extractor.Extract(clip)
	if err != nil {
		return "", 0, fmt.Errorf("extract features: %w", err)
	}

	pred, err := w.classifier.Classify(ctx, vector)
	if err != nil {
		switch {
		case errors.Is(err, classify.ErrNoReferenceData):
			return "", 0, fmt.Errorf("classification unavailable: %w", err)
		case errors.Is(err, classify.ErrModelUnavailable):
			return "", 0, fmt.Errorf("classification unavailable: %w", err)
		default:
			return "", 0, fmt.Errorf("classify: %w", err)
		}
	}
	return pred.Label, pred.Confidence, nil
}
