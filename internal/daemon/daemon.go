package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"cinespin/internal/config"
	"cinespin/internal/httpapi"
	"cinespin/internal/logging"
	"cinespin/internal/vibecache"
)

// Daemon runs the HTTP API and the cache sweeper under one supervisor and
// enforces single-instance execution per lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  vibecache.Admin
	api    *httpapi.Server

	lockPath string
	lock     *flock.Flock

	http    *httpService
	sweeper *sweeperService
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Address      string
	CacheBackend string
	LockFilePath string
}

// New constructs a daemon around an HTTP API server and its cache.
func New(cfg *config.Config, api *httpapi.Server, cache vibecache.Admin, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || api == nil {
		return nil, errors.New("daemon requires config and api server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := LockPath(cfg)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		cache:    cache,
		api:      api,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.http = newHTTPService(cfg.Server.Bind, api.Handler(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second, d.logger)
	if cache != nil {
		d.sweeper = newSweeperService(cache, time.Duration(cfg.Cache.SweepIntervalSeconds)*time.Second, d.logger)
	}
	return d, nil
}

// LockPath returns the single-instance lock file for cfg.
func LockPath(cfg *config.Config) string {
	dir := cfg.Logging.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cinespind.lock")
}

// Run acquires the lock and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cinespin daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	handler := &sutureslog.Handler{Logger: d.logger}
	root := suture.New("cinespin", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          time.Duration(d.cfg.Server.ShutdownTimeoutSeconds) * time.Second,
	})
	root.Add(d.http)
	if d.sweeper != nil {
		root.Add(d.sweeper)
	}

	d.logger.Info("cinespin daemon started", logging.String("lock", d.lockPath), logging.String("bind", d.cfg.Server.Bind))
	err = root.Serve(ctx)
	d.api.Close()
	d.logger.Info("cinespin daemon stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Ready is closed once the HTTP listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.http.ready
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Address:      d.http.Addr(),
		CacheBackend: config.CacheBackendMemory,
		LockFilePath: d.lockPath,
	}
	if d.cache != nil {
		status.CacheBackend = d.cache.Backend()
	}
	return status
}
