package transport

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	"github.com/lodestar-gis/lodestar/pkg/constants"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// Retry runs fn with exponential backoff until it succeeds, returns a
// non-transient error, or exhausts the attempt budget. Auth failures,
// malformed payloads, and timeouts are permanent: retrying them only wastes
// the caller's deadline.
func Retry[T any](ctx context.Context, connector string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !errors.IsTransient(err) {
			return result, backoff.Permanent(err)
		}
		logging.Ctx(ctx).Debug().
			Err(err).
			Str("connector", connector).
			Int("attempt", attempt).
			Msg("Retrying transient failure")
		return result, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = constants.RetryBackoff
	expo.MaxInterval = constants.MaxRetryBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(constants.MaxRetries),
	)
}
