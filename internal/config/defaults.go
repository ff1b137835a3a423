package config

import (
	"path/filepath"

	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// Default values applied when the file leaves a field empty.
const (
	DefaultOutputDir      = "./out"
	DefaultArtifactDir    = ".synthdata/artifacts"
	DefaultEventStore     = ".synthdata/events.db"
	DefaultHTTPHost       = "127.0.0.1"
	DefaultHTTPPort       = 8090
	DefaultWorkers        = 2
	DefaultQueueSize      = 32
	DefaultMetricsPath    = "/metrics"
	DefaultNATSSubject    = "synthdata.artifacts"
	DefaultNATSTimeout    = "5s"
	DefaultReloadDebounce = "500ms"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type outputDefaults struct{}

func (outputDefaults) Domain() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "csv"
	}
	if cfg.Output.MaxPoints == 0 {
		cfg.Output.MaxPoints = recipe.DefaultMaxPoints
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

type storageDefaults struct{}

func (storageDefaults) Domain() string { return "storage" }

func (storageDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Storage.ArtifactDir == "" {
		cfg.Storage.ArtifactDir = filepath.Clean(DefaultArtifactDir)
	}
	if cfg.Storage.EventStore == "" {
		cfg.Storage.EventStore = filepath.Clean(DefaultEventStore)
	}
	return nil
}

type retryDefaults struct{}

func (retryDefaults) Domain() string { return "retry" }

func (retryDefaults) ApplyDefaults(cfg *Config) error {
	r := &cfg.Retry
	if r.Backoff == "" && r.InitialDelay == "" && r.MaxDelay == "" && r.MaxRetries == 0 {
		r.MaxRetries = 2
	}
	if r.Backoff == "" {
		r.Backoff = RetryBackoffLinear
	}
	if r.InitialDelay == "" {
		r.InitialDelay = "1s"
	}
	if r.MaxDelay == "" {
		r.MaxDelay = "30s"
	}
	return nil
}

type daemonDefaults struct{}

func (daemonDefaults) Domain() string { return "daemon" }

func (daemonDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Daemon == nil {
		cfg.Daemon = &DaemonConfig{Metrics: MetricsConfig{Enabled: true}}
	}
	d := cfg.Daemon
	if d.HTTP.Host == "" {
		d.HTTP.Host = DefaultHTTPHost
	}
	if d.HTTP.Port == 0 {
		d.HTTP.Port = DefaultHTTPPort
	}
	if d.Workers <= 0 {
		d.Workers = DefaultWorkers
	}
	if d.QueueSize <= 0 {
		d.QueueSize = DefaultQueueSize
	}
	if d.ReloadDebounce == "" {
		d.ReloadDebounce = DefaultReloadDebounce
	}
	if d.Metrics.Path == "" {
		d.Metrics.Path = DefaultMetricsPath
	}
	if n := d.NATS; n != nil {
		if n.Subject == "" {
			n.Subject = DefaultNATSSubject
		}
		if n.Timeout == "" {
			n.Timeout = DefaultNATSTimeout
		}
		if n.Name == "" {
			n.Name = "synthdata"
		}
	}
	return nil
}

type scheduleDefaults struct{}

func (scheduleDefaults) Domain() string { return "schedules" }

func (scheduleDefaults) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Schedules {
		if cfg.Schedules[i].Name == "" {
			cfg.Schedules[i].Name = cfg.Schedules[i].Recipe
		}
	}
	return nil
}

// DefaultAppliers lists the appliers in application order.
func DefaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		outputDefaults{},
		loggingDefaults{},
		storageDefaults{},
		retryDefaults{},
		daemonDefaults{},
		scheduleDefaults{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, a := range DefaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
