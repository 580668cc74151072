package resilience

import (
	"context"
	"time"
)

// ForeverConfig controls the unbounded fixed-interval retry loop.
type ForeverConfig struct {
	// Interval is the fixed delay between attempts. Default: 5s.
	Interval time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// A non-retryable error ends the loop immediately.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

func (cfg ForeverConfig) withDefaults() ForeverConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}
	return cfg
}

// Forever executes fn until it succeeds, returns a non-retryable error, or
// the context is cancelled. Long-running batch jobs prefer waiting out an
// upstream outage over giving up partway through a partition, so there is no
// attempt cap: cancellation is the only bound.
func Forever(ctx context.Context, cfg ForeverConfig, fn func(ctx context.Context) error) error {
	_, err := ForeverVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ForeverVal is Forever for functions that return a value.
func ForeverVal[T any](ctx context.Context, cfg ForeverConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}

		if ctx.Err() != nil {
			return zero, err
		}
		if !cfg.ShouldRetry(err) {
			return zero, err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
