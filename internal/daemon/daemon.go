// Package daemon runs recipes on schedules and on request, storing their
// outputs and recording every run in the event log.
package daemon

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/api"
	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/eventstore"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/jobs"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
	"git.home.luguber.info/inful/synthdata/internal/metrics"
	"git.home.luguber.info/inful/synthdata/internal/publish"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
	"git.home.luguber.info/inful/synthdata/internal/retry"
	"git.home.luguber.info/inful/synthdata/internal/storage"
	"git.home.luguber.info/inful/synthdata/internal/version"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Daemon represents the main daemon service.
type Daemon struct {
	config         *config.Config
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time
	mu             sync.RWMutex

	artifacts  storage.ObjectStore
	eventStore eventstore.Store
	projection *eventstore.RunProjection
	emitter    *EventEmitter
	registry   *metricsRegistry
	recorder   metrics.Recorder
	publisher  publish.Publisher
	runner     *Runner
	queue      *jobs.Queue
	scheduler  *Scheduler
	watcher    *ConfigWatcher
	api        *api.Server
	listener   net.Listener
	serveErr   chan error
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	// ConfigPath enables hot reload when set.
	ConfigPath string
	// Publisher replaces the one built from the NATS config.
	Publisher publish.Publisher
	// Listener replaces the configured HTTP address.
	Listener net.Listener
}

// New builds a daemon from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.DaemonError("configuration is required").Build()
	}
	if cfg.Daemon == nil {
		return nil, errors.ConfigError("daemon section is required").Build()
	}

	d := &Daemon{
		config:         cfg,
		configFilePath: opts.ConfigPath,
		listener:       opts.Listener,
		serveErr:       make(chan error, 1),
	}
	d.status.Store(StatusStopped)

	var err error
	if d.artifacts, err = storage.Open(cfg.Storage.ArtifactDir); err != nil {
		return nil, err
	}
	if d.eventStore, err = eventstore.NewSQLiteStore(cfg.Storage.EventStore); err != nil {
		_ = d.artifacts.Close()
		return nil, err
	}
	d.projection = eventstore.NewRunProjection(d.eventStore, jobs.DefaultHistorySize)
	d.emitter = NewEventEmitter(d.eventStore, d.projection)

	d.recorder = metrics.NoopRecorder{}
	if cfg.Daemon.Metrics.Enabled {
		d.registry = newMetricsRegistry()
		d.recorder = d.registry.recorder
	}

	d.publisher = opts.Publisher
	if d.publisher == nil {
		if d.publisher, err = publish.New(cfg.Daemon.NATS); err != nil {
			d.closeStores()
			return nil, err
		}
	}

	d.runner = NewRunner(RunnerConfig{
		Artifacts: d.artifacts,
		Emitter:   d.emitter,
		Recorder:  d.recorder,
		Publisher: d.publisher,
		Retry:     func() retry.Policy { return retry.FromConfig(d.GetConfig()) },
		Output:    func() config.OutputConfig { return d.GetConfig().Output },
	})
	d.queue = jobs.New(cfg.Daemon.QueueSize, cfg.Daemon.Workers, d.runner)
	d.queue.SetRetryPolicy(retry.FromConfig(cfg))
	d.queue.SetRecorder(d.recorder)
	d.queue.SetEventEmitter(d.emitter)

	if d.scheduler, err = NewScheduler(d.Submit); err != nil {
		d.closeStores()
		return nil, err
	}

	if opts.ConfigPath != "" {
		debounce, _ := time.ParseDuration(cfg.Daemon.ReloadDebounce)
		if d.watcher, err = NewConfigWatcher(opts.ConfigPath, d, debounce); err != nil {
			d.closeStores()
			return nil, err
		}
	}

	apiOpts := api.Options{
		Recipes:   d,
		Queue:     d.queue,
		Events:    d.eventStore,
		Artifacts: d.artifacts,
		MaxPoints: func() int { return d.GetConfig().Output.MaxPoints },
	}
	if d.registry != nil {
		apiOpts.Metrics = d.registry.handler
		apiOpts.MetricsPath = cfg.Daemon.Metrics.Path
	}
	d.api = api.NewServer(d.Addr(), apiOpts)

	return d, nil
}

// Addr is the configured listen address.
func (d *Daemon) Addr() string {
	h := d.config.Daemon.HTTP
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// GetStatus returns the lifecycle state.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Queue exposes the job queue.
func (d *Daemon) Queue() *jobs.Queue { return d.queue }

// Projection exposes the in-memory run history.
func (d *Daemon) Projection() *eventstore.RunProjection { return d.projection }

// Recipes implements api.RecipeSource.
func (d *Daemon) Recipes() []recipe.Recipe {
	cfg := d.GetConfig()
	out := make([]recipe.Recipe, len(cfg.Recipes))
	copy(out, cfg.Recipes)
	return out
}

// Recipe implements api.RecipeSource.
func (d *Daemon) Recipe(name string) (recipe.Recipe, bool) {
	return d.GetConfig().RecipeByName(name)
}

// Submit enqueues the named recipe and returns the job ID.
func (d *Daemon) Submit(name string, trigger jobs.Trigger) (string, error) {
	r, ok := d.Recipe(name)
	if !ok {
		return "", errors.NotFoundError("recipe not found").WithContext("recipe", name).Build()
	}
	job := jobs.NewJob(r, trigger)
	if err := d.queue.Enqueue(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Start rebuilds the run projection, then starts the queue, the scheduler,
// the config watcher and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() != StatusStopped {
		return errors.DaemonError("daemon is not stopped").WithContext("status", string(d.GetStatus())).Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	slog.Info("Starting synthdata daemon", slog.String("version", version.Version), slog.String("addr", d.Addr()))

	if keep := d.config.EventRetention(); keep > 0 {
		n, err := d.eventStore.Prune(ctx, time.Now().Add(-keep))
		if err != nil {
			slog.Warn("Failed to prune run events", logfields.Error(err))
		} else if n > 0 {
			slog.Info("Pruned run events", slog.Int64("events", n), slog.Duration("retention", keep))
		}
	}

	if err := d.projection.Rebuild(ctx); err != nil {
		slog.Warn("Failed to rebuild run history", logfields.Error(err))
	}

	d.queue.Start(ctx)

	if err := d.scheduler.Apply(d.config.Schedules); err != nil {
		d.status.Store(StatusError)
		return err
	}
	d.scheduler.Start()

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	ln := d.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", d.Addr())
		if err != nil {
			d.status.Store(StatusError)
			return errors.WrapError(err, errors.CategoryNetwork, "failed to listen").
				WithContext("addr", d.Addr()).
				Build()
		}
		d.listener = ln
	}
	go func() {
		err := d.api.Serve(ln)
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", logfields.Error(err))
			d.serveErr <- err
		}
	}()

	d.status.Store(StatusRunning)
	slog.Info("Daemon running", slog.String("addr", ln.Addr().String()))
	return nil
}

// Done reports fatal HTTP server errors.
func (d *Daemon) Done() <-chan error { return d.serveErr }

// Stop shuts components down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	// Workers read the config while draining, so the lock only guards the
	// status transition.
	d.mu.Lock()
	current := d.GetStatus()
	if current == StatusStopped || current == StatusStopping {
		d.mu.Unlock()
		return nil
	}
	d.status.Store(StatusStopping)
	d.mu.Unlock()
	slog.Info("Stopping synthdata daemon")

	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if err := d.api.Shutdown(ctx); err != nil {
		slog.Error("Failed to stop HTTP server", logfields.Error(err))
	}
	d.queue.Stop(ctx)
	if err := d.publisher.Close(); err != nil {
		slog.Warn("Failed to close publisher", logfields.Error(err))
	}
	d.closeStores()

	d.status.Store(StatusStopped)
	slog.Info("Daemon stopped", slog.Duration("uptime", time.Since(d.startTime)))
	return nil
}

func (d *Daemon) closeStores() {
	if d.eventStore != nil {
		if err := d.eventStore.Close(); err != nil {
			slog.Warn("Failed to close event store", logfields.Error(err))
		}
	}
	if d.artifacts != nil {
		_ = d.artifacts.Close()
	}
}

// ReloadConfig swaps recipes, schedules, output and retry settings.
// Storage, HTTP and NATS settings need a restart.
func (d *Daemon) ReloadConfig(_ context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.config
	if newConfig.Version != old.Version {
		return errors.ConfigError("configuration version change requires daemon restart").Build()
	}
	if newConfig.Daemon != nil && (newConfig.Daemon.HTTP != old.Daemon.HTTP) {
		slog.Warn("HTTP listener changes require a restart")
	}
	if newConfig.Storage != old.Storage {
		slog.Warn("Storage changes require a restart")
	}

	if err := d.scheduler.Apply(newConfig.Schedules); err != nil {
		if rerr := d.scheduler.Apply(old.Schedules); rerr != nil {
			slog.Error("Failed to restore previous schedules", logfields.Error(rerr))
		}
		return err
	}
	d.config = newConfig
	d.queue.SetRetryPolicy(retry.FromConfig(newConfig))
	slog.Info("Configuration reloaded",
		slog.Int("recipes", len(newConfig.Recipes)),
		slog.Int("schedules", len(newConfig.Schedules)),
		logfields.Path(filepath.Base(d.configFilePath)))
	return nil
}
