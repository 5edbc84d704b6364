package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cadence/internal/api"
	"cadence/internal/blob"
	"cadence/internal/classify"
	"cadence/internal/config"
	"cadence/internal/features"
	"cadence/internal/logging"
	"cadence/internal/queue"
	"cadence/internal/worker"
)

// Daemon coordinates the worker loop and the API server, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	blobs  *blob.Store
	worker *worker.Worker
	api    *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	BlobDir      string
	LockFilePath string
	Queue        queue.HealthSummary
}

// New constructs a daemon from initialized dependencies.
func New(cfg *config.Config, store *queue.Store, blobs *blob.Store, w *worker.Worker, apiSrv *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || blobs == nil || w == nil {
		return nil, errors.New("daemon requires config, stores, and worker")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "cadenced.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		blobs:    blobs,
		worker:   w,
		api:      apiSrv,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Bootstrap wires a complete daemon from configuration alone: stores,
// extractor, classifier, worker, and API server.
func Bootstrap(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	blobs, err := blob.Open(cfg.BlobDir())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	extractor, err := features.ForConfig(cfg)
	if err != nil {
		blobs.Close()
		store.Close()
		return nil, err
	}
	classifier, err := classify.ForConfig(cfg, store)
	if err != nil {
		blobs.Close()
		store.Close()
		return nil, err
	}

	w := worker.New(cfg, store, blobs, extractor, classifier, logger)
	apiSrv := api.New(cfg, store, blobs, logger)
	return New(cfg, store, blobs, w, apiSrv, logger)
}

// Start acquires the daemon lock and launches background processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cadence daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.worker.Start(d.ctx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.api.Start(d.ctx); err != nil {
		d.worker.Stop()
		d.releaseStart()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("cadence daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cadence daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.blobs != nil {
		errs = append(errs, d.blobs.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// APIAddr returns the bound API address, or empty when the API is off.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

// Status returns the current daemon status. The queue summary is
// best-effort; a store failure leaves it zeroed.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health query failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		BlobDir:      d.cfg.BlobDir(),
		LockFilePath: d.lockPath,
		Queue:        summary,
	}
}
