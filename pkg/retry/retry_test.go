package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
)

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 5 * time.Millisecond}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, 5*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 5*time.Millisecond, backoff.NextDelay(10))
}

func TestRetryWithSuccess(t *testing.T) {
	var seen []int
	err := Do(func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(error) bool { return true },
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	var retries []int
	last := errs.NewHTTP(503)

	err := Do(func(int) error {
		attempts++
		return last
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
		},
		Context: context.Background(),
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	// no wait after the final attempt
	assert.Equal(t, []int{1, 2}, retries)
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.ErrorIs(t, err, errs.HTTP)
}

func TestRetryNonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(func(int) error {
		attempts++
		return errs.NewApplication("Work has been deleted", 404)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NotErrorIs(t, err, ErrMaxAttempts)
	assert.ErrorIs(t, err, errs.Application)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(func(int) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("temporary error")
	}, &Config{
		MaxAttempts: 10,
		Backoff:     &ConstantBackoff{Delay: 50 * time.Millisecond},
		RetryIf:     func(error) bool { return true },
		Context:     ctx,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.NewNetwork(errors.New("reset")), true},
		{"http", errs.NewHTTP(500), true},
		{"io", errs.NewIO("write", errors.New("disk full")), true},
		{"application", errs.NewApplication("nope", 400), false},
		{"parse", errs.NewParse(200, errors.New("bad json")), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"untyped", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetryIf(tt.err))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	attempts := 0
	cfg := DefaultConfig()
	cfg.Backoff = &ConstantBackoff{}

	err := Do(func(int) error {
		attempts++
		return errs.NewEmptyResponse(200)
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, ErrMaxAttempts)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
