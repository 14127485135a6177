package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultPermits is the default number of upstream requests allowed in flight
const DefaultPermits = 50

// ErrPoolClosed is returned by Acquire once the pool has been closed
var ErrPoolClosed = errors.New("permit pool closed")

// Limiter gates outbound requests
type Limiter interface {
	// Acquire blocks until a request may be sent
	Acquire(ctx context.Context) (*Permit, error)
	// InFlight returns the number of permits currently held
	InFlight() int
	// Size returns the capacity of the limiter
	Size() int
}

// PermitPool bounds the number of simultaneously in-flight requests.
// One pool is shared by every component of a run.
type PermitPool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64

	closeCtx context.Context
	closeFn  context.CancelFunc
}

// NewPermitPool creates a pool with the given capacity; size <= 0 uses DefaultPermits
func NewPermitPool(size int) *PermitPool {
	if size <= 0 {
		size = DefaultPermits
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PermitPool{
		sem:      semaphore.NewWeighted(int64(size)),
		size:     size,
		closeCtx: ctx,
		closeFn:  cancel,
	}
}

// Acquire waits for a free slot. It fails with ctx's error when ctx is done
// and with ErrPoolClosed when the pool is closed while waiting or before.
func (p *PermitPool) Acquire(ctx context.Context) (*Permit, error) {
	if p.closeCtx.Err() != nil {
		return nil, ErrPoolClosed
	}

	acqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.closeCtx, cancel)
	defer stop()

	if err := p.sem.Acquire(acqCtx, 1); err != nil {
		if p.closeCtx.Err() != nil {
			return nil, ErrPoolClosed
		}
		return nil, ctx.Err()
	}

	p.inFlight.Add(1)
	return &Permit{pool: p}, nil
}

// InFlight returns the number of permits currently held
func (p *PermitPool) InFlight() int {
	return int(p.inFlight.Load())
}

// Size returns the capacity of the pool
func (p *PermitPool) Size() int {
	return p.size
}

// Close makes every pending and future Acquire fail. Held permits stay valid.
func (p *PermitPool) Close() {
	p.closeFn()
}

// Permit is one slot of a PermitPool
type Permit struct {
	pool *PermitPool
	once sync.Once
}

// Release returns the slot to the pool. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.pool.inFlight.Add(-1)
		p.pool.sem.Release(1)
	})
}
