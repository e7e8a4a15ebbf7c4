package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"cuebridge/internal/bridge"
	"cuebridge/internal/config"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
	"cuebridge/internal/library"
	"cuebridge/internal/logging"
	"cuebridge/internal/preflight"
	"cuebridge/internal/relay"
)

// Store is the persisted store the daemon owns.
type Store interface {
	kv.Store
	Close() error
}

// Daemon coordinates the relay, library, and store, and enforces
// single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       Store
	library     *library.Library
	coordinator *bridge.Coordinator
	relay       *relay.Server
	api         *apiServer
	logPath     string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	stopped   atomic.Bool
	mu        sync.Mutex
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	StartedAt      time.Time
	RelayAddress   string
	DatabasePath   string
	LockFilePath   string
	LogPath        string
	Tabs           int
	PendingBridges int
	Transcripts    int
	Drafts         int
	EditingID      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store Store, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	coordinator := bridge.NewCoordinator(
		bridge.WithOpener(bridge.OpenerFor(cfg.Relay.OpenCommand)),
		bridge.WithCoordinatorLogger(logger),
	)
	lib := library.New(store,
		library.WithDomains(cfg.Remote.Domains),
		library.WithDraftDefaults(cue.DraftDefaults{
			Language: cfg.Editor.DefaultLanguage,
			Author:   cfg.Editor.DefaultAuthor,
		}),
		library.WithShortcutDefaults(cfg.Shortcuts),
		library.WithIndicatorDefault(cfg.Editor.ShowIndicator),
		library.WithLogger(logger),
	)
	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		library:     lib,
		coordinator: coordinator,
		relay: relay.NewServer(coordinator, store,
			relay.WithServerLogger(logger),
			relay.WithOriginPatterns(cfg.Relay.AllowedOrigins...),
		),
		logPath:  logPath,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts the HTTP listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped.Load() {
		return errors.New("daemon was stopped; construct a new one to restart")
	}

	if failed := preflight.Failed([]preflight.Result{
		preflight.CheckDirectoryAccess("Data directory", d.cfg.Paths.DataDir),
	}); len(failed) > 0 {
		return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cuebridge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start relay listener: %w", err)
	}

	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("cuebridge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("relay", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop closes relay connections, stops the listener, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.relay.Close()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may need the lock file removed"),
		)
	}
	d.running.Store(false)
	d.stopped.Store(true)
	d.logger.Info("cuebridge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Library returns the transcript library backed by the daemon's store.
func (d *Daemon) Library() *library.Library {
	return d.library
}

// Coordinator returns the bridge coordinator.
func (d *Daemon) Coordinator() *bridge.Coordinator {
	return d.coordinator
}

// Tabs lists the browsing contexts connected through the relay.
func (d *Daemon) Tabs() []bridge.TabInfo {
	return d.coordinator.Tabs()
}

// Address returns the relay listener address, or "" when stopped.
func (d *Daemon) Address() string {
	return d.api.address()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status. Library counts that cannot be
// read are reported as zero.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		RelayAddress:   d.api.address(),
		DatabasePath:   d.cfg.DatabasePath(),
		LockFilePath:   d.lockPath,
		LogPath:        d.logPath,
		Tabs:           len(d.coordinator.Tabs()),
		PendingBridges: d.coordinator.PendingBridges(),
	}
	if status.Running {
		status.StartedAt = startedAt
	}
	if entries, err := d.library.ListTranscripts(ctx); err == nil {
		status.Transcripts = len(entries)
	} else {
		d.logger.Debug("status transcript count failed", logging.Error(err))
	}
	if drafts, err := d.library.ListDrafts(ctx); err == nil {
		status.Drafts = len(drafts)
	} else {
		d.logger.Debug("status draft count failed", logging.Error(err))
	}
	if editing, ok, err := kv.GetEditingID(ctx, d.store); err == nil && ok {
		status.EditingID = editing.ID
	}
	return status
}
