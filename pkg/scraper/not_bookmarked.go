package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/storage"
)

// FindNotBookmarked lists the work ids found under dir that are in neither
// the public nor the private bookmarks of userID, in ascending order. With
// ignoreMissing, works that upstream no longer serves are left out; this
// costs one request per candidate.
func (s *Scraper) FindNotBookmarked(ctx context.Context, dir string, userID uint64, ignoreMissing bool) ([]uint64, error) {
	idx, err := storage.BuildIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", dir, err)
	}
	onDisk := idx.IllustIDs()

	bookmarked, err := s.bookmarkedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var candidates []uint64
	for _, id := range onDisk {
		if _, ok := bookmarked[id]; !ok {
			candidates = append(candidates, id)
		}
	}

	log := s.logger.WithField("user_id", userID)
	log.InfoWithFields("Compared files with bookmarks", map[string]interface{}{
		"on_disk":        len(onDisk),
		"bookmarked":     len(bookmarked),
		"not_bookmarked": len(candidates),
	})

	if !ignoreMissing || len(candidates) == 0 {
		return candidates, nil
	}
	return s.dropMissing(ctx, candidates)
}

// bookmarkedIDs collects every bookmark of both lists, masked ones included
func (s *Scraper) bookmarkedIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	var mu sync.Mutex
	ids := make(map[uint64]struct{})

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate} {
		g.Go(func() error {
			for offset := 0; ; offset += pixiv.PageLimit {
				list, err := s.api.UserBookmarks(gctx, userID, offset, pixiv.PageLimit, v)
				if err != nil {
					return fmt.Errorf("list %s bookmarks of %d: %w", v, userID, err)
				}
				mu.Lock()
				for _, w := range list.Works {
					ids[uint64(w.ID)] = struct{}{}
				}
				mu.Unlock()
				if len(list.Works) == 0 || offset+pixiv.PageLimit >= list.Total {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// dropMissing removes ids whose metadata request fails with an application error
func (s *Scraper) dropMissing(ctx context.Context, ids []uint64) ([]uint64, error) {
	var mu sync.Mutex
	var kept []uint64

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.api.IllustInfo(gctx, id)
			switch {
			case errors.Is(err, errs.Application):
				s.logger.DebugWithFields("Skipping work no longer available", map[string]interface{}{
					"illust_id": id,
					"error":     err.Error(),
				})
				return nil
			case err != nil:
				return fmt.Errorf("check work %d: %w", id, err)
			}
			mu.Lock()
			kept = append(kept, id)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(kept, func(a, b int) bool { return kept[a] < kept[b] })
	return kept, nil
}
