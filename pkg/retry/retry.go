package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
	// AttemptTimeout bounds each call of the operation; zero means no bound
	AttemptTimeout time.Duration
}

// DefaultConfig returns the startup connection policy: up to one minute of
// exponential backoff with five-second attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: time.Minute,
		AttemptTimeout:  5 * time.Second,
	}
}

// Operation is a single attempt
type Operation func(ctx context.Context) error

// Do runs op until it succeeds, the attempts run out or ctx ends. Failed
// attempts are logged with the target name.
func Do(ctx context.Context, cfg Config, target string, op Operation) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborted(target, attempt-1, err, lastErr)
		}

		lastErr = runAttempt(ctx, cfg.AttemptTimeout, op)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		log.Warn().
			Err(lastErr).
			Str("target", target).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Connection attempt failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return aborted(target, attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay = NextDelay(delay, cfg)
	}

	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", target, cfg.MaxAttempts, lastErr)
}

// NextDelay applies the backoff factor, capped at MaxDelay
func NextDelay(delay time.Duration, cfg Config) time.Duration {
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(delay) * factor)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}

func runAttempt(ctx context.Context, timeout time.Duration, op Operation) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func aborted(target string, attempts int, cause, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", target, attempts, cause, lastErr)
	}
	return fmt.Errorf("%s: retry aborted: %w", target, cause)
}
