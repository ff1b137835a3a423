package config

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/synthdata/internal/foundation"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

var plotFormats = map[string]bool{"": true, "png": true, "svg": true, "pdf": true}

// ValidateConfig checks the whole configuration and reports every problem
// found as one configuration error.
func ValidateConfig(cfg *Config) error {
	v := foundation.NewValidation("")

	v.Check(plotFormats[cfg.Output.Plot], "output.plot", cfg.Output.Plot, "must be png, svg, pdf or empty")
	v.Check(cfg.Output.MaxPoints > 0, "output.max_points", cfg.Output.MaxPoints, "must be positive")
	validateRetry(v, cfg.Retry)
	if r := cfg.Storage.EventRetention; r != "" {
		d, err := time.ParseDuration(r)
		v.Check(err == nil && d > 0, "storage.event_retention", r, "must be a positive duration")
	}
	if cfg.Daemon != nil {
		validateDaemon(v, cfg.Daemon)
	}

	names := make(map[string]bool, len(cfg.Recipes))
	for i, r := range cfg.Recipes {
		if names[r.Name] {
			v.Check(false, "recipes", r.Name, "duplicate recipe name %q", r.Name)
		}
		names[r.Name] = true
		if err := r.ValidateWithin(cfg.Output.MaxPoints); err != nil {
			v.Check(false, "recipes", i, "%s", errors.MessageOf(err))
		}
	}

	scheduleNames := make(map[string]bool, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		v.Check(!scheduleNames[s.Name], "schedules", s.Name, "duplicate schedule name %q", s.Name)
		scheduleNames[s.Name] = true
		v.Check(names[s.Recipe], "schedules."+s.Name+".recipe", s.Recipe, "unknown recipe %q", s.Recipe)
		v.Check((s.Every == "") != (s.Cron == ""), "schedules."+s.Name, nil, "exactly one of every and cron is required")
		if s.Every != "" {
			d, err := time.ParseDuration(s.Every)
			v.Check(err == nil && d > 0, "schedules."+s.Name+".every", s.Every, "must be a positive duration")
		}
		if s.Cron != "" {
			v.Check(validCron(s.Cron), "schedules."+s.Name+".cron", s.Cron, "invalid cron expression")
		}
	}

	if err := v.Err(); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "configuration validation failed").
			WithContext("problems", len(v.Errors())).
			Fatal().
			UserAction().
			Build()
	}
	return nil
}

func validateRetry(v *foundation.Validation, r RetryConfig) {
	initial, ierr := time.ParseDuration(r.InitialDelay)
	v.Check(ierr == nil && initial > 0, "retry.initial_delay", r.InitialDelay, "must be a positive duration")
	maxDelay, merr := time.ParseDuration(r.MaxDelay)
	v.Check(merr == nil && maxDelay > 0, "retry.max_delay", r.MaxDelay, "must be a positive duration")
}

func validateDaemon(v *foundation.Validation, d *DaemonConfig) {
	v.Check(d.HTTP.Port > 0 && d.HTTP.Port < 65536, "daemon.http.port", d.HTTP.Port, "must be a valid TCP port")
	_, err := time.ParseDuration(d.ReloadDebounce)
	v.Check(err == nil, "daemon.reload_debounce", d.ReloadDebounce, "must be a duration")
	if n := d.NATS; n != nil {
		v.Check(n.URL != "", "daemon.nats.url", n.URL, "is required when nats is configured")
		_, err := time.ParseDuration(n.Timeout)
		v.Check(err == nil, "daemon.nats.timeout", n.Timeout, "must be a duration")
	}
}

// validCron asks gocron to parse the expression without starting anything.
func validCron(expr string) bool {
	s, err := gocron.NewScheduler()
	if err != nil {
		return false
	}
	defer func() { _ = s.Shutdown() }()
	_, err = s.NewJob(gocron.CronJob(expr, false), gocron.NewTask(func() {}))
	return err == nil
}
