package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/balcao/pkg/observability"
)

// retryPolicy bounds retries of storage operations: a fixed number of
// attempts with exponential backoff, doubling from Base and capped at
// Max. After exhaustion callers degrade to a safe default instead of
// propagating the failure; a chat turn should always produce some
// response even when persistence is limping.
type retryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

var defaultRetryPolicy = retryPolicy{
	Attempts: 3,
	Base:     50 * time.Millisecond,
	Max:      500 * time.Millisecond,
}

// do runs fn up to p.Attempts times. Context cancellation stops the
// loop immediately.
func (p retryPolicy) do(ctx context.Context, logger *slog.Logger, metrics *observability.Metrics, op string, fn func(context.Context) error) error {
	delay := p.Base
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		metrics.Retry(op)
		logger.Warn("storage operation failed, retrying",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"err", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.Max {
			delay = p.Max
		}
	}
	return err
}
