package discovery

import (
	"context"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
)

// userPosts emits a user's illustrations then manga, each newest first.
// Everything comes from one profile call so fast incremental only drops
// indexed works here.
func (e *Engine) userPosts(ctx context.Context, em *emitter, userID uint64, baseDir string) error {
	profile, err := e.api.UserProfile(ctx, userID)
	if err != nil {
		return err
	}

	dir := models.ResolvedDir(baseDir)
	for _, ids := range [][]uint64{profile.Illusts, profile.Manga} {
		for _, id := range ids {
			if _, err := em.emit(ctx, id, dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// taggedPosts pages through a user's works carrying tag
func (e *Engine) taggedPosts(ctx context.Context, em *emitter, log logger.Logger, userID uint64, tag, baseDir string) error {
	dir := models.ResolvedDir(baseDir)
	processed := 0

	for {
		list, err := e.api.UserTaggedWorks(ctx, userID, tag, processed, e.opts.PageLimit)
		if err != nil {
			return err
		}

		for _, w := range list.Works {
			if w.IsMasked {
				continue
			}
			more, err := em.emit(ctx, uint64(w.ID), dir)
			if err != nil {
				return err
			}
			if !more {
				log.Debug("reached already downloaded works")
				return nil
			}
		}

		processed += len(list.Works)
		logger.LogDiscoveryProgress(log, "tagged posts", processed, list.Total)
		if processed >= list.Total || len(list.Works) == 0 {
			return nil
		}
	}
}
