package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
)

// Operation is a single attemptable unit of work.
type Operation func(ctx context.Context) error

// Config controls the retry behavior of Helper.Do.
type Config struct {
	// Attempts is the total attempt budget, including the first try.
	// Values below 1 are treated as 1.
	Attempts int
	// Delay is the base wait between attempts.
	Delay time.Duration
	// MaxDelay caps the per-wait delay after backoff and jitter. Zero means
	// no cap.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay per attempt. Values below 1.0 are
	// treated as 1.0 (constant delay).
	BackoffFactor float64
	// Jitter in [0,1] randomizes each delay by up to +/- Jitter*delay.
	Jitter float64
	// Name labels log lines produced while retrying.
	Name string
}

// Helper executes operations under a bounded retry policy.
type Helper struct {
	log        harnesslog.Logger
	randSource *rand.Rand
}

func NewHelper(log harnesslog.Logger) *Helper {
	if log == nil {
		panic("retry.NewHelper requires a non-nil logger")
	}
	return &Helper{
		log:        log,
		randSource: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do runs op until it succeeds, the attempt budget is spent, or ctx is done.
// The attempt counter starts explicitly at 1; after the budget is exhausted
// the last operation error is returned unchanged so callers can inspect it.
// A cancellation error wraps both the last attempt failure and ctx.Err(), so
// errors.Is matches either cause.
func (h *Helper) Do(ctx context.Context, cfg Config, op Operation) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.BackoffFactor < 1.0 {
		cfg.BackoffFactor = 1.0
	}
	if cfg.Jitter < 0.0 {
		cfg.Jitter = 0.0
	} else if cfg.Jitter > 1.0 {
		cfg.Jitter = 1.0
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}

	var lastErr error
	logPrefix := ""
	if cfg.Name != "" {
		logPrefix = fmt.Sprintf("%s: ", cfg.Name)
	}

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			h.log.Warnf("%sattempt %d/%d cancelled before start: %v", logPrefix, attempt, cfg.Attempts, ctx.Err())
			if lastErr == nil {
				return ctx.Err()
			}
			return fmt.Errorf("retry cancelled after %d attempts with last error: %w (context: %w)", attempt-1, lastErr, ctx.Err())
		default:
		}

		err := op(ctx)
		lastErr = err

		if err == nil {
			if attempt > 1 {
				h.log.Infof("%soperation succeeded on attempt %d/%d", logPrefix, attempt, cfg.Attempts)
			}
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}

		wait := h.nextDelay(cfg, attempt)
		h.log.Warnf("%sattempt %d/%d failed (retrying in %v): %v",
			logPrefix, attempt, cfg.Attempts, wait.Truncate(time.Millisecond), err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			h.log.Warnf("%sdelay before attempt %d/%d cancelled: %v", logPrefix, attempt+1, cfg.Attempts, ctx.Err())
			return fmt.Errorf("retry delay cancelled after attempt %d with error: %w (context: %w)", attempt, lastErr, ctx.Err())
		}
	}

	if lastErr != nil {
		h.log.Errorf("%soperation failed definitively after %d attempts: %v", logPrefix, cfg.Attempts, lastErr)
		return lastErr
	}

	return harnesserrors.NewConfigError("retry loop finished unexpectedly without success or error", nil)
}

// nextDelay computes the wait before attempt+1, applying backoff, jitter
// and the MaxDelay cap.
func (h *Helper) nextDelay(cfg Config, attempt int) time.Duration {
	base := float64(cfg.Delay)
	if cfg.BackoffFactor > 1.0 {
		base *= math.Pow(cfg.BackoffFactor, float64(attempt-1))
	}
	if base > float64(math.MaxInt64) {
		base = float64(math.MaxInt64)
	}
	wait := time.Duration(base)

	if cfg.Jitter > 0.0 {
		jitterFactor := cfg.Jitter * (h.randSource.Float64()*2.0 - 1.0)
		wait += time.Duration(float64(wait) * jitterFactor)
		if wait < 0 {
			wait = 0
		}
	}

	if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
		wait = cfg.MaxDelay
	}
	return wait
}
