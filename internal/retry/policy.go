// Package retry holds the backoff policy shared by queued runs and artifact
// notice publishing.
package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// Policy is an immutable backoff description.
type Policy struct {
	Mode       config.RetryBackoffMode
	Initial    time.Duration
	Max        time.Duration
	MaxRetries int // retries after the first attempt
}

// DefaultPolicy is linear backoff from 1s capped at 30s with two retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy starts from DefaultPolicy and overrides every field that is set.
// An initial delay above the cap is clamped to the cap.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	p.Initial = min(p.Initial, p.Max)
	return p
}

// FromConfig builds the policy described by the retry section.
func FromConfig(cfg *config.Config) Policy {
	initial, maxDelay := cfg.RetryDelays()
	return NewPolicy(cfg.Retry.Backoff, initial, maxDelay, cfg.Retry.MaxRetries)
}

// Delay is the pause before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		if n > 32 {
			return p.Max
		}
		d = p.Initial << (n - 1)
	default:
		d = time.Duration(n) * p.Initial
	}
	if d <= 0 || d > p.Max {
		return p.Max
	}
	return d
}

// Wait sleeps for Delay(n) or until ctx is done.
func (p Policy) Wait(ctx context.Context, n int) error {
	d := p.Delay(n)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Outcome describes how Do finished.
type Outcome struct {
	Retries   int
	Exhausted bool // gave up on a retryable error after at least one retry
}

// Do calls fn until it succeeds, fails with an error that is not retryable,
// or MaxRetries retries are used up. onRetry, when set, is told about each
// retry before the pause.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error, onRetry func(n int, delay time.Duration, err error)) (Outcome, error) {
	var out Outcome
	for {
		err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !errors.IsRetryable(err) || ctx.Err() != nil {
			return out, err
		}
		if out.Retries >= p.MaxRetries {
			out.Exhausted = out.Retries > 0
			return out, err
		}
		out.Retries++
		if onRetry != nil {
			onRetry(out.Retries, p.Delay(out.Retries), err)
		}
		if werr := p.Wait(ctx, out.Retries); werr != nil {
			return out, werr
		}
	}
}

// Validate rejects policies that cannot be applied.
func (p Policy) Validate() error {
	switch {
	case p.Initial <= 0:
		return errors.ValidationError("retry initial delay must be positive").WithContext("initial", p.Initial.String()).Build()
	case p.Max <= 0:
		return errors.ValidationError("retry max delay must be positive").WithContext("max", p.Max.String()).Build()
	case p.MaxRetries < 0:
		return errors.ValidationError("retry count cannot be negative").WithContext("max_retries", p.MaxRetries).Build()
	}
	return nil
}
