package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/logging"
	"cadenza/internal/metrics"
	"cadenza/internal/scan"
)

// Daemon owns the catalog store, the scan runner, and the HTTP API, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *catalog.Store
	runner  *scan.Runner
	metrics *metrics.Metrics

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	// jobs tracks in-flight job goroutines so Stop can wait for the
	// cancelled runner to reach a terminal state.
	jobs sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	Database     catalog.DatabaseHealth
	ActiveJob    *catalog.Job
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	m := metrics.New()
	lockPath := filepath.Join(cfg.Paths.LogDir, "cadenzad.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		runner:   scan.NewRunner(cfg, store, m, logger),
		metrics:  m,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cadenza daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("cadenza daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels any running job, waits for it to settle, shuts down the
// API server, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.jobs.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cadenza daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LaunchJob starts a matching job in the background. The returned record
// is the job as created; progress is observable through the job API.
// Returns catalog.ErrJobAlreadyRunning when a job holds the lease.
func (d *Daemon) LaunchJob(ctx context.Context, jobType catalog.JobType) (*catalog.Job, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon is not running")
	}
	handle, err := d.runner.Begin(ctx, jobType)
	if err != nil {
		return nil, err
	}

	runCtx := d.ctx
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		if _, err := handle.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("matching job run failed", logging.Error(err))
		}
	}()
	return handle.Job(), nil
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		if health, err := d.store.CheckHealth(ctx); err == nil {
			status.Database = health
		} else {
			status.Database = catalog.DatabaseHealth{DBPath: d.store.Path()}
		}
		if job, err := d.store.RunningJob(ctx); err == nil {
			status.ActiveJob = job
		}
	}
	return status
}

// Store exposes the catalog store for API services.
func (d *Daemon) Store() *catalog.Store {
	return d.store
}
