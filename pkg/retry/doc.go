// Package retry runs an operation until it succeeds, a non-retryable error is
// returned or the attempt budget is spent.
//
// The transfer engine drives every asset download through Do with a
// ConstantBackoff between attempts:
//
//	err := retry.Do(func(attempt int) error {
//		return fetch(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		Context:     ctx,
//	})
//
// When the budget is exhausted the returned error wraps both ErrMaxAttempts
// and the last error returned by the operation.
package retry
