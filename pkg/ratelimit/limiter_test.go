package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermitPoolBoundsConcurrency(t *testing.T) {
	pool := NewPermitPool(3)

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permit, err := pool.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			defer permit.Release()

			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 0, pool.InFlight())
}

func TestPermitReleaseIsIdempotent(t *testing.T) {
	pool := NewPermitPool(1)

	permit, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InFlight())

	permit.Release()
	permit.Release()
	assert.Equal(t, 0, pool.InFlight())

	// the single slot is usable exactly once more
	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	second.Release()
}

func TestPermitPoolDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultPermits, NewPermitPool(0).Size())
	assert.Equal(t, 7, NewPermitPool(7).Size())
}

func TestPermitPoolClose(t *testing.T) {
	pool := NewPermitPool(1)
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	waiting := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		waiting <- err
	}()

	time.Sleep(10 * time.Millisecond)
	pool.Close()

	select {
	case err := <-waiting:
		assert.True(t, errors.Is(err, ErrPoolClosed))
	case <-time.After(time.Second):
		t.Fatal("pending Acquire was not woken by Close")
	}

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	held.Release()
}
