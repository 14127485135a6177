package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/storage"
)

// API is the subset of the pixiv client used for discovery
type API interface {
	UserProfile(ctx context.Context, userID uint64) (*pixiv.UserProfile, error)
	UserBookmarks(ctx context.Context, userID uint64, offset, limit int, visibility models.Visibility) (*pixiv.WorkList, error)
	SeriesPage(ctx context.Context, seriesID uint64, page int) (*pixiv.SeriesPage, error)
	UserTaggedWorks(ctx context.Context, userID uint64, tag string, offset, limit int) (*pixiv.WorkList, error)
}

// Options tune discovery
type Options struct {
	// Index holds files already on disk; nil disables incremental mode
	Index *storage.FileIndex
	// FastIncremental stops newest-first listings at the first indexed work
	FastIncremental bool
	// NamedDir puts series into a directory named after the series title
	NamedDir bool
	// PageLimit is the page size of offset/limit listings
	PageLimit int
}

// Stats counts what a Discover call produced
type Stats struct {
	Emitted int
	Skipped int
}

// Engine turns a Source into a stream of work items
type Engine struct {
	api    API
	opts   Options
	logger logger.Logger
}

// NewEngine creates a discovery engine
func NewEngine(api API, opts Options, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = pixiv.PageLimit
	}
	return &Engine{api: api, opts: opts, logger: log}
}

// Discover sends every work item of src to out. It does not close out.
// The first error aborts discovery; items already sent stay sent.
func (e *Engine) Discover(ctx context.Context, src models.Source, baseDir string, out chan<- models.WorkItem) (Stats, error) {
	if err := src.Validate(); err != nil {
		return Stats{}, err
	}

	em := &emitter{
		out:   out,
		index: e.opts.Index,
		fast:  e.opts.FastIncremental,
		seen:  make(map[uint64]struct{}),
	}
	log := e.logger.WithField("source", src.String())
	log.Debug("discovery started")

	var err error
	switch src.Kind {
	case models.SourceIndividual:
		err = e.individual(ctx, em, src.IllustIDs, baseDir)
	case models.SourceSeries:
		err = e.series(ctx, em, log, src.SeriesID, baseDir)
	case models.SourceUserPosts:
		if src.Tag != nil {
			err = e.taggedPosts(ctx, em, log, src.UserID, *src.Tag, baseDir)
		} else {
			err = e.userPosts(ctx, em, src.UserID, baseDir)
		}
	case models.SourceUserBookmarks:
		err = e.bookmarks(ctx, em, log, src.UserID, src.Visibility, baseDir)
	default:
		err = fmt.Errorf("unsupported source kind %q", src.Kind)
	}

	stats := em.stats()
	fields := map[string]interface{}{
		"emitted": stats.Emitted,
		"skipped": stats.Skipped,
	}
	if err != nil {
		log.WithError(err).WarnWithFields("discovery aborted", fields)
		return stats, err
	}
	log.DebugWithFields("discovery finished", fields)
	return stats, nil
}

// emitter filters and forwards ids. It is shared by concurrent page fetches.
type emitter struct {
	out   chan<- models.WorkItem
	index *storage.FileIndex
	fast  bool

	mu   sync.Mutex
	seen map[uint64]struct{}

	emitted atomic.Int64
	skipped atomic.Int64
}

// emit sends id unless it is a duplicate or already indexed. It returns false
// when a newest-first listing should stop.
func (em *emitter) emit(ctx context.Context, id uint64, dir *models.DirFuture) (bool, error) {
	em.mu.Lock()
	_, dup := em.seen[id]
	em.seen[id] = struct{}{}
	em.mu.Unlock()
	if dup {
		return true, nil
	}

	if em.index.Contains(id) {
		em.skipped.Add(1)
		return !em.fast, nil
	}

	select {
	case em.out <- models.WorkItem{ID: id, Dir: dir}:
		em.emitted.Add(1)
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (em *emitter) stats() Stats {
	return Stats{
		Emitted: int(em.emitted.Load()),
		Skipped: int(em.skipped.Load()),
	}
}
