package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
)

// series walks the 1-indexed pages of a series until the running count
// reaches the advertised total
func (e *Engine) series(ctx context.Context, em *emitter, log logger.Logger, seriesID uint64, baseDir string) error {
	dir := models.NewDirFuture()
	// never leave readers waiting if the first page fails
	defer dir.Resolve(baseDir)

	count := 0
	for page := 1; ; page++ {
		sp, err := e.api.SeriesPage(ctx, seriesID, page)
		if err != nil {
			return err
		}

		if page == 1 {
			if err := e.resolveSeriesDir(dir, sp.Title(), baseDir); err != nil {
				return err
			}
		}

		entries := sp.Page.Series
		count += len(entries)
		for _, entry := range entries {
			if _, err := em.emit(ctx, uint64(entry.WorkID), dir); err != nil {
				return err
			}
		}

		logger.LogDiscoveryProgress(log, "series", count, sp.Page.Total)
		if count >= sp.Page.Total {
			return nil
		}
		if len(entries) == 0 {
			return errs.NewParse(0, fmt.Errorf("series %d: page %d is empty after %d of %d works", seriesID, page, count, sp.Page.Total))
		}
	}
}

func (e *Engine) resolveSeriesDir(dir *models.DirFuture, title, baseDir string) error {
	name := SanitizeName(title)
	if !e.opts.NamedDir || name == "" {
		dir.Resolve(baseDir)
		return nil
	}

	path := filepath.Join(baseDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return errs.NewIO("create series directory", err)
	}
	dir.Resolve(path)
	e.logger.DebugWithFields("series directory resolved", map[string]interface{}{
		"path": path,
	})
	return nil
}
