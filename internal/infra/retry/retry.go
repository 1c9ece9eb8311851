package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Executor retries transient failures with bounded exponential backoff.
// Attempts are sequential: the same operation is never in flight twice, so
// everything wrapped here must be safe to repeat.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(maxAttempts int, baseDelay, maxDelay time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		sleep:       sleepCtx,
	}
}

// Do runs op up to MaxAttempts times. Business-rule rejections propagate on
// the first observation; only transient failures are retried. The final
// failure is wrapped with the operation name and attempt count.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := e.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w: %v", name, domain.ErrCancelled, err)
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w: %v", name, domain.ErrCancelled, lastErr)
		}
		if domain.IsBusinessRule(lastErr) || !domain.IsTransient(lastErr) {
			return fmt.Errorf("%s: %w", name, lastErr)
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, e.backoff(attempt)); err != nil {
			return fmt.Errorf("%s: %w: %v", name, domain.ErrCancelled, err)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}

// Value runs op like Executor.Do and returns its result.
func Value[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (e *Executor) backoff(attempt int) time.Duration {
	base := e.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	max := e.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}
	delay := base << (attempt - 1)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
