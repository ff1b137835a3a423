package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

const minimalYAML = `
version: "1.0"
recipes:
  - name: plain
    kind: series
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultOutputDir, cfg.Output.Directory)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, recipe.DefaultMaxPoints, cfg.Output.MaxPoints)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	require.NotNil(t, cfg.Daemon)
	assert.Equal(t, DefaultHTTPPort, cfg.Daemon.HTTP.Port)
	assert.Equal(t, DefaultWorkers, cfg.Daemon.Workers)
	assert.True(t, cfg.Daemon.Metrics.Enabled)

	initial, maxDelay := cfg.RetryDelays()
	assert.Equal(t, time.Second, initial)
	assert.Equal(t, 30*time.Second, maxDelay)

	r, ok := cfg.RecipeByName("plain")
	require.True(t, ok)
	assert.Equal(t, recipe.KindSeries, r.Kind)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SYNTHDATA_TEST_OUT", "/tmp/synth-out")
	cfg, err := Load(writeConfig(t, minimalYAML+"output:\n  directory: ${SYNTHDATA_TEST_OUT}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/synth-out", cfg.Output.Directory)
}

func TestLoadRejectsVersion(t *testing.T) {
	_, err := Load(writeConfig(t, "version: \"2.0\"\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestNormalizationWarnings(t *testing.T) {
	cfg := &Config{
		Version: Version,
		Logging: LoggingConfig{Level: "WARNING", Format: "xml"},
		Retry:   RetryConfig{Backoff: "Exponential", MaxRetries: -3},
		Output:  OutputConfig{Format: "JSONL", Plot: " PNG "},
	}
	res := NormalizeConfig(cfg)

	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, RetryBackoffExponential, cfg.Retry.Backoff)
	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	assert.Equal(t, "ndjson", cfg.Output.Format)
	assert.Equal(t, "png", cfg.Output.Plot)
	assert.Len(t, res.Warnings, 5)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "duplicate recipe",
			body: minimalYAML + "  - name: plain\n    kind: pattern\n    pattern: {length: 10}\n",
			want: "duplicate recipe name",
		},
		{
			name: "schedule unknown recipe",
			body: minimalYAML + "schedules:\n  - name: s\n    recipe: other\n    every: 1h\n",
			want: "schedules.s.recipe",
		},
		{
			name: "schedule needs exactly one trigger",
			body: minimalYAML + "schedules:\n  - name: s\n    recipe: plain\n    every: 1h\n    cron: \"* * * * *\"\n",
			want: "exactly one of every and cron",
		},
		{
			name: "bad cron",
			body: minimalYAML + "schedules:\n  - name: s\n    recipe: plain\n    cron: \"not a cron\"\n",
			want: "schedules.s.cron",
		},
		{
			name: "bad retry delay",
			body: minimalYAML + "retry:\n  initial_delay: soon\n",
			want: "retry.initial_delay",
		},
		{
			name: "invalid recipe",
			body: "version: \"1.0\"\nrecipes:\n  - name: bad\n    kind: series\n    series:\n      anomaly: {fraction: 2, scale: 1}\n",
			want: "anomaly.fraction",
		},
		{
			name: "negative max points",
			body: minimalYAML + "output:\n  max_points: -1\n",
			want: "output.max_points",
		},
		{
			name: "recipe above max points",
			body: minimalYAML + "output:\n  max_points: 100\n",
			want: "recipe.points",
		},
		{
			name: "bad event retention",
			body: minimalYAML + "storage:\n  event_retention: forever\n",
			want: "storage.event_retention",
		},
		{
			name: "nats without url",
			body: minimalYAML + "daemon:\n  nats: {subject: x}\n",
			want: "daemon.nats.url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthdata.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Recipes, 3)
	assert.Len(t, cfg.Schedules, 2)
	assert.Equal(t, "png", cfg.Output.Plot)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}
