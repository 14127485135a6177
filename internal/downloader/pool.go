package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/ratelimit"
)

// API is the part of the pixiv client the engine needs
type API interface {
	IllustPages(ctx context.Context, illustID uint64) ([]pixiv.Page, error)
	IllustInfo(ctx context.Context, illustID uint64) (*pixiv.IllustInfo, error)
	UgoiraMeta(ctx context.Context, illustID uint64) (*pixiv.UgoiraMeta, error)
	Download(ctx context.Context, rawURL string, timeout time.Duration, w io.Writer) (int64, error)
}

// Options configure an Engine
type Options struct {
	// Workers is the number of item consumers; it should equal the permit pool size
	Workers      int
	MaxTries     int
	Timeout      time.Duration
	RetryDelay   time.Duration
	DirPolicy    models.DirPolicy
	Ugoira       bool
	SaveMetadata bool
	// OnEvent is called from worker goroutines and must be safe for concurrent use
	OnEvent func(Event)
}

// DefaultOptions returns the stock engine settings
func DefaultOptions() Options {
	return Options{
		Workers:    ratelimit.DefaultPermits,
		MaxTries:   DefaultMaxTries,
		Timeout:    DefaultTransferTimeout,
		RetryDelay: DefaultRetryDelay,
		DirPolicy:  models.DirPolicyAlways,
	}
}

// ItemResult is the outcome of one work item
type ItemResult struct {
	Item      models.WorkItem
	Dir       string
	Assets    int
	Completed int
	// Failures lists assets that spent their retry budget
	Failures []models.Failure
	// Err is set when the item failed before any transfer started
	Err      error
	Duration time.Duration
}

// Failed reports whether the item or any of its assets failed
func (r ItemResult) Failed() bool {
	return r.Err != nil || len(r.Failures) > 0
}

// Engine downloads work items with a fixed set of workers. Every upstream
// request goes through the client's permit pool, so the worker count only
// bounds how many items are resolved at once.
type Engine struct {
	numWorkers  int
	jobQueue    chan models.WorkItem
	resultQueue chan ItemResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once
	api         API
	transfer    *Transfer
	opts        Options
	logger      logger.Logger
}

// NewEngine creates a new download engine
func NewEngine(api API, opts Options, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = ratelimit.DefaultPermits
	}
	if opts.DirPolicy == "" {
		opts.DirPolicy = models.DirPolicyAlways
	}

	return &Engine{
		numWorkers:  opts.Workers,
		jobQueue:    make(chan models.WorkItem, opts.Workers*2),
		resultQueue: make(chan ItemResult, opts.Workers),
		api:         api,
		transfer: NewTransfer(api, TransferOptions{
			MaxTries:   opts.MaxTries,
			Timeout:    opts.Timeout,
			RetryDelay: opts.RetryDelay,
		}, log),
		opts:   opts,
		logger: log,
	}
}

// Start launches the workers. Results must be drained by the caller.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.logger.InfoWithFields("Starting download engine", map[string]interface{}{
		"num_workers": e.numWorkers,
		"dir_policy":  string(e.opts.DirPolicy),
	})

	for i := 0; i < e.numWorkers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
}

// Stop waits for every submitted item to finish and closes the result channel
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.jobQueue)
		e.wg.Wait()
		close(e.resultQueue)
		e.cancel()
		e.logger.Debug("Download engine stopped")
	})
}

// Submit queues an item, blocking while the queue is full
func (e *Engine) Submit(item models.WorkItem) error {
	select {
	case e.jobQueue <- item:
		e.logger.DebugWithFields("Item submitted to queue", map[string]interface{}{
			"illust_id": item.ID,
		})
		return nil
	case <-e.ctx.Done():
		return fmt.Errorf("download engine is shutting down: %w", e.ctx.Err())
	}
}

// Results returns the result channel
func (e *Engine) Results() <-chan ItemResult {
	return e.resultQueue
}

// Run starts the engine, feeds it every item from items until that channel is
// closed, then stops it. The returned channel closes once all items are done.
func (e *Engine) Run(ctx context.Context, items <-chan models.WorkItem) <-chan ItemResult {
	e.Start(ctx)
	go func() {
		defer e.Stop()
		for item := range items {
			if err := e.Submit(item); err != nil {
				e.logger.WarnWithFields("Dropping item", map[string]interface{}{
					"illust_id": item.ID,
					"error":     err.Error(),
				})
			}
		}
	}()
	return e.Results()
}

// QueueSize returns the number of items waiting for a worker
func (e *Engine) QueueSize() int {
	return len(e.jobQueue)
}

// Workers returns the number of workers
func (e *Engine) Workers() int {
	return e.numWorkers
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	e.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for item := range e.jobQueue {
		result := e.processItem(e.ctx, item, id)

		select {
		case e.resultQueue <- result:
		case <-e.ctx.Done():
			e.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	e.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

func (e *Engine) emit(ev Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}
