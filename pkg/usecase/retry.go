package usecase

import (
	"context"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond

	// casAttempts bounds re-reads when a compare-and-set write races
	casAttempts = 3
)

// retryPolicy bounds re-attempts of retryable platform failures. Only
// failures marked retryable by the normalizer are re-attempted; the delay
// is fixed. Callers apply it only to idempotent operations.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: defaultRetryAttempts, delay: defaultRetryDelay}
}

// callWithRetry runs fn until it yields a non-retryable outcome or the
// attempt budget runs out. Context cancellation stops the loop between
// attempts.
func callWithRetry[T any](ctx context.Context, p retryPolicy, fn func(ctx context.Context) model.Outcome[T]) model.Outcome[T] {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var last model.Outcome[T]
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return model.Failed[T](types.ErrKindUpstreamError,
					goerr.Wrap(ctx.Err(), "canceled while waiting to retry"), false)
			case <-time.After(p.delay):
			}
		}

		last = fn(ctx)
		if !last.Retryable() {
			return last
		}
	}
	return last
}
