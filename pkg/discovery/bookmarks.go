package discovery

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
)

// bookmarks crawls the public and/or private bookmark lists concurrently
func (e *Engine) bookmarks(ctx context.Context, em *emitter, log logger.Logger, userID uint64, visibility models.Visibility, baseDir string) error {
	dir := models.ResolvedDir(baseDir)

	if visibility != models.VisibilityBoth {
		if visibility == "" {
			visibility = models.VisibilityPublic
		}
		return e.bookmarkList(ctx, em, log, userID, visibility, dir)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate} {
		g.Go(func() error {
			return e.bookmarkList(gctx, em, log, userID, v, dir)
		})
	}
	return g.Wait()
}

// bookmarkList fetches the first page to learn the total, then every other
// page. Pages are fetched in parallel unless the crawl is fast incremental,
// which walks them in order and stops at the first known work.
func (e *Engine) bookmarkList(ctx context.Context, em *emitter, log logger.Logger, userID uint64, visibility models.Visibility, dir *models.DirFuture) error {
	limit := e.opts.PageLimit
	log = log.WithField("visibility", string(visibility))

	first, err := e.api.UserBookmarks(ctx, userID, 0, limit, visibility)
	if err != nil {
		return err
	}
	if more, err := e.emitBookmarks(ctx, em, first.Works, dir); err != nil || !more {
		return err
	}

	pages := (first.Total + limit - 1) / limit
	logger.LogDiscoveryProgress(log, "bookmarks", len(first.Works), first.Total)

	fetch := func(ctx context.Context, page int) (bool, error) {
		list, err := e.api.UserBookmarks(ctx, userID, page*limit, limit, visibility)
		if err != nil {
			return false, err
		}
		return e.emitBookmarks(ctx, em, list.Works, dir)
	}

	if em.fast {
		for page := 1; page < pages; page++ {
			more, err := fetch(ctx, page)
			if err != nil || !more {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for page := 1; page < pages; page++ {
		g.Go(func() error {
			_, err := fetch(gctx, page)
			return err
		})
	}
	return g.Wait()
}

func (e *Engine) emitBookmarks(ctx context.Context, em *emitter, works []pixiv.ListedWork, dir *models.DirFuture) (bool, error) {
	for _, w := range works {
		if w.IsMasked {
			continue
		}
		more, err := em.emit(ctx, uint64(w.ID), dir)
		if err != nil || !more {
			return false, err
		}
	}
	return true, nil
}
