package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/synthdata/internal/export"
)

// NormalizationResult captures adjustments and warnings from the normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerations before defaults are applied.
// Unknown values are replaced by the default and reported as warnings.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if c == nil {
		return res
	}
	c.Version = strings.TrimSpace(c.Version)

	normalizeEnum(res, "logging.level", &c.Logging.Level, NormalizeLogLevel, LogLevelInfo)
	normalizeEnum(res, "logging.format", &c.Logging.Format, NormalizeLogFormat, LogFormatText)
	normalizeEnum(res, "retry.backoff", &c.Retry.Backoff, NormalizeRetryBackoff, RetryBackoffLinear)
	if raw := c.Output.Format; raw != "" {
		f, err := export.ParseFormat(raw)
		if err != nil {
			res.warnUnknown("output.format", raw, string(export.FormatCSV))
			f = export.FormatCSV
		} else {
			res.changed("output.format", raw, string(f))
		}
		c.Output.Format = string(f)
	}
	c.Output.Plot = strings.ToLower(strings.TrimSpace(c.Output.Plot))

	if c.Retry.MaxRetries < 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("retry.max_retries %d clamped to 0", c.Retry.MaxRetries))
		c.Retry.MaxRetries = 0
	}
	for i := range c.Recipes {
		c.Recipes[i].Normalize()
	}
	for i := range c.Schedules {
		s := &c.Schedules[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Recipe = strings.TrimSpace(s.Recipe)
		s.Every = strings.TrimSpace(s.Every)
		s.Cron = strings.TrimSpace(s.Cron)
	}
	return res
}

// normalizeEnum canonicalizes *cur in place. Empty values are left for the
// default appliers.
func normalizeEnum[T ~string](res *NormalizationResult, field string, cur *T, norm func(string) T, def T) {
	raw := string(*cur)
	if raw == "" {
		return
	}
	v := norm(raw)
	if v == "" {
		res.warnUnknown(field, raw, string(def))
		*cur = def
		return
	}
	res.changed(field, raw, string(v))
	*cur = v
}

func (r *NormalizationResult) changed(field, from, to string) {
	if from != to {
		r.Warnings = append(r.Warnings, fmt.Sprintf("normalized %s from '%s' to '%s'", field, from, to))
	}
}

func (r *NormalizationResult) warnUnknown(field, value, def string) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def))
}
