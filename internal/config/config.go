package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// Version is the configuration format version this build understands.
const Version = "1.0"

// Config is the root of synthdata.yaml.
type Config struct {
	Version   string           `yaml:"version"`
	Output    OutputConfig     `yaml:"output"`
	Logging   LoggingConfig    `yaml:"logging,omitempty"`
	Storage   StorageConfig    `yaml:"storage,omitempty"`
	Retry     RetryConfig      `yaml:"retry,omitempty"`
	Daemon    *DaemonConfig    `yaml:"daemon,omitempty"`
	Recipes   []recipe.Recipe  `yaml:"recipes"`
	Schedules []ScheduleConfig `yaml:"schedules,omitempty"`
}

// OutputConfig controls where and how tables are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`         // csv|json|ndjson
	Plot      string `yaml:"plot,omitempty"` // png|svg|pdf, empty disables plots

	// MaxPoints caps the values one recipe may generate. Inline recipes
	// posted to the API are held to it as well.
	MaxPoints int `yaml:"max_points,omitempty"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// StorageConfig locates the artifact store and the event log.
type StorageConfig struct {
	ArtifactDir string `yaml:"artifact_dir"`
	EventStore  string `yaml:"event_store"` // sqlite path, ":memory:" allowed

	// EventRetention drops run events older than this when the daemon
	// starts. Empty keeps everything.
	EventRetention string `yaml:"event_retention,omitempty"`
}

// RetryConfig configures retries of transient failures in queued runs.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
	MaxRetries   int              `yaml:"max_retries"`
}

// DaemonConfig holds settings only the serve command uses.
type DaemonConfig struct {
	HTTP           HTTPConfig    `yaml:"http"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ReloadDebounce string        `yaml:"reload_debounce,omitempty"`
	Metrics        MetricsConfig `yaml:"metrics"`
	NATS           *NATSConfig   `yaml:"nats,omitempty"`
}

// HTTPConfig is the API listener.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NATSConfig enables artifact notices over NATS.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// ScheduleConfig runs a named recipe periodically. Exactly one of Every and
// Cron is set.
type ScheduleConfig struct {
	Name   string `yaml:"name"`
	Recipe string `yaml:"recipe"`
	Every  string `yaml:"every,omitempty"`
	Cron   string `yaml:"cron,omitempty"`
}

// Load reads, expands, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Fatal().
			Build()
	}
	return Parse(data)
}

// Parse is Load without the file system: it takes the raw YAML.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	if cfg.Version != Version {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", Version).
			Build()
	}

	res := NormalizeConfig(&cfg)
	for _, w := range res.Warnings {
		slog.Warn("Config normalization", slog.String("detail", w))
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RecipeByName returns the named recipe.
func (c *Config) RecipeByName(name string) (recipe.Recipe, bool) {
	for _, r := range c.Recipes {
		if r.Name == name {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

// RetryDelays parses the retry durations; validation guarantees they parse.
func (c *Config) RetryDelays() (initial, maxDelay time.Duration) {
	initial, _ = time.ParseDuration(c.Retry.InitialDelay)
	maxDelay, _ = time.ParseDuration(c.Retry.MaxDelay)
	return initial, maxDelay
}

// EventRetention parses storage.event_retention; zero means keep forever.
func (c *Config) EventRetention() time.Duration {
	d, _ := time.ParseDuration(c.Storage.EventRetention)
	return d
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	prob, shapeLen := 0.2, 10
	example := Config{
		Version: Version,
		Output:  OutputConfig{Directory: "./out", Format: "csv", Plot: "png", MaxPoints: recipe.DefaultMaxPoints},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Storage: StorageConfig{ArtifactDir: "./.synthdata/artifacts", EventStore: "./.synthdata/events.db", EventRetention: "720h"},
		Retry:   RetryConfig{Backoff: RetryBackoffLinear, InitialDelay: "1s", MaxDelay: "30s", MaxRetries: 2},
		Daemon: &DaemonConfig{
			HTTP:      HTTPConfig{Host: "127.0.0.1", Port: 8090},
			Workers:   2,
			QueueSize: 32,
			Metrics:   MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Recipes: []recipe.Recipe{
			{
				Name: "daily-drift",
				Kind: recipe.KindSeries,
				Seed: 42,
				Series: &recipe.SeriesRecipe{
					Start:          "2021-01-01 00:00:00",
					End:            "2021-01-02 00:00:00",
					ProcessMinutes: 10,
					Scale:          1,
					Anomaly:        &recipe.AnomalyRecipe{Mode: recipe.ModeChunk, Chunks: 4, Fraction: 0.05, Scale: 2},
					Drift:          &recipe.DriftRecipe{PctMean: 20},
				},
			},
			{
				Name:    "shapes",
				Kind:    recipe.KindPattern,
				Pattern: &recipe.PatternRecipe{Length: 500, AvgPatternLength: &shapeLen, Shapes: []string{"bell", "funnel", "cylinder"}},
			},
			{
				Name:    "classifier-train",
				Kind:    recipe.KindDataset,
				Seed:    7,
				Dataset: &recipe.DatasetRecipe{N: 100, Size: 256, ProbAnomalous: &prob},
			},
		},
		Schedules: []ScheduleConfig{
			{Name: "hourly-drift", Recipe: "daily-drift", Every: "1h"},
			{Name: "nightly-dataset", Recipe: "classifier-train", Cron: "0 3 * * *"},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
