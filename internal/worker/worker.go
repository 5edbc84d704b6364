package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cadence/internal/blob"
	"cadence/internal/classify"
	"cadence/internal/config"
	"cadence/internal/features"
	"cadence/internal/logging"
	"cadence/internal/queue"
)

// Worker drains the task queue: it claims pending tasks one at a time,
// runs feature extraction and classification, and persists the outcome.
// One worker processes one task at a time; run several workers for
// parallelism, the claim statement keeps them from colliding.
type Worker struct {
	cfg        *config.Config
	store      *queue.Store
	blobs      *blob.Store
	extractor  features.Extractor
	classifier classify.Classifier
	logger     *slog.Logger
	heartbeat  *heartbeatMonitor

	pollInterval   time.Duration
	maxIdleBackoff time.Duration
	errorRetry     time.Duration
	reconnectBase  time.Duration
	reconnectMax   time.Duration
	connectTimeout time.Duration

	// sleep paces the loop between ticks; tests swap it out to observe
	// the chosen delays without waiting them out.
	sleep func(ctx context.Context, delay time.Duration) bool

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	taskCtx    context.Context
	taskCancel context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
}

// New assembles a worker from its collaborators. The logger may be nil.
func New(
	cfg *config.Config,
	store *queue.Store,
	blobs *blob.Store,
	extractor features.Extractor,
	classifier classify.Classifier,
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "worker"))

	return &Worker{
		cfg:        cfg,
		store:      store,
		blobs:      blobs,
		extractor:  extractor,
		classifier: classifier,
		logger:     logger,
		heartbeat: newHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Worker.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Worker.HeartbeatTimeout)*time.Second,
			time.Duration(cfg.Worker.ConnectTimeout)*time.Second,
		),
		pollInterval:   time.Duration(cfg.Worker.PollInterval) * time.Second,
		maxIdleBackoff: time.Duration(cfg.Worker.MaxIdleBackoff) * time.Second,
		errorRetry:     time.Duration(cfg.Worker.ErrorRetryInterval) * time.Second,
		reconnectBase:  time.Duration(cfg.Worker.ReconnectBase) * time.Second,
		reconnectMax:   time.Duration(cfg.Worker.ReconnectMax) * time.Second,
		connectTimeout: time.Duration(cfg.Worker.ConnectTimeout) * time.Second,
		sleep:          sleepCtx,
	}
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}

	// The loop and task contexts are split so Stop can halt polling while
	// the in-flight task runs to completion. Only the parent context
	// aborts a task mid-pipeline.
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.taskCtx, w.taskCancel = context.WithCancel(ctx)
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight task
// to finish. Shutdown is cooperative: cancellation is only observed
// between ticks, so the current task runs to completion and its outcome
// is recorded before the loop exits.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	taskCancel := w.taskCancel
	w.running = false
	w.cancel = nil
	w.taskCancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	taskCancel()
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// LastError returns the most recent loop-level failure, if any.
func (w *Worker) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
