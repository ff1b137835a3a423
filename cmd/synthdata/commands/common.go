// Package commands implements the synthdata CLI.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

// LogLevelEnv overrides the log level of every command.
const LogLevelEnv = "SYNTHDATA_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"synthdata.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Series  SeriesCmd  `cmd:"" help:"Generate a time series with optional anomalies and drift"`
	Pattern PatternCmd `cmd:"" help:"Generate a series composed of bell, funnel and cylinder shapes"`
	Dataset DatasetCmd `cmd:"" help:"Generate a labelled collection of normal and anomalous series"`
	Run     RunCmd     `cmd:"" help:"Run recipes from the configuration file"`
	Serve   ServeCmd   `cmd:"" help:"Run the daemon: HTTP API, job queue and schedules"`
	Catalog CatalogCmd `cmd:"" help:"Print the generator catalog"`
	Events  EventsCmd  `cmd:"" help:"Show recorded runs from the event log"`

	out io.Writer
}

// Vars are the interpolation variables the flag definitions use.
func Vars(versionLine string) kong.Vars {
	return kong.Vars{
		"version":      versionLine,
		"series_start": timeseries.DefaultStart,
		"series_end":   timeseries.DefaultEnd,
	}
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = newLogger(parseLogLevel(c.Verbose, ""), config.LogFormatText)
	slog.SetDefault(g.Logger)
	return nil
}

// stdout is where commands write tables and reports.
func (c *CLI) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// loadConfig reads the config file and re-applies its logging section.
// --verbose and SYNTHDATA_LOG_LEVEL still take precedence.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = newLogger(parseLogLevel(c.Verbose, cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// parseLogLevel resolves the level from the verbose flag, the environment
// and the config, in that order.
func parseLogLevel(verbose bool, configured config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := config.NormalizeLogLevel(os.Getenv(LogLevelEnv)); env != "" {
		configured = env
	}
	switch configured {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// printer formats counts in reports with grouping separators.
func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// writeFile writes data to path, creating parent directories. "-" writes to w.
func writeFile(w io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := w.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryExport, "failed to create output directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryExport, "failed to write output").
			WithContext("path", path).
			Build()
	}
	return nil
}
