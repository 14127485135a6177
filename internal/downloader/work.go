package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/metadata"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
)

// workAssets is what one item resolves to before its transfers start
type workAssets struct {
	assets []models.Asset
	info   *pixiv.IllustInfo
	ugoira *pixiv.UgoiraMeta
}

func (e *Engine) processItem(ctx context.Context, item models.WorkItem, workerID int) ItemResult {
	start := time.Now()
	result := ItemResult{Item: item}
	log := e.logger.WithField("illust_id", item.ID)

	log.DebugWithFields("Worker processing item", map[string]interface{}{
		"worker_id": workerID,
	})
	e.emit(Event{Type: EventItemStarted, ItemID: item.ID})

	fail := func(err error) ItemResult {
		result.Err = err
		result.Duration = time.Since(start)
		log.WithError(err).Error("Failed to process item")
		e.emit(Event{Type: EventItemFailed, ItemID: item.ID, Err: err})
		return result
	}

	dir, err := item.Dir.Wait(ctx)
	if err != nil {
		return fail(fmt.Errorf("wait for destination of %d: %w", item.ID, err))
	}

	work, err := e.resolveAssets(ctx, item.ID)
	if err != nil {
		return fail(err)
	}
	result.Assets = len(work.assets)

	if e.opts.DirPolicy.UseSubdir(len(work.assets)) {
		dir = filepath.Join(dir, strconv.FormatUint(item.ID, 10))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(errs.NewIO("create directory "+dir, err))
	}
	result.Dir = dir
	e.emit(Event{Type: EventItemResolved, ItemID: item.ID, File: dir, Assets: len(work.assets)})

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, asset := range work.assets {
		wg.Add(1)
		go func(asset models.Asset) {
			defer wg.Done()
			attempt, err := e.transfer.SafeDownload(ctx, asset.URL, dir)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f := models.Failure{ItemID: item.ID, File: asset.URL, Error: err.Error()}
				if attempt != nil {
					f.File = attempt.FinalPath
					f.Tries = attempt.Tries
				}
				result.Failures = append(result.Failures, f)
				e.emit(Event{Type: EventAssetFailed, ItemID: item.ID, File: f.File, Tries: f.Tries, Err: err})
				return
			}
			result.Completed++
			e.emit(Event{Type: EventAssetCompleted, ItemID: item.ID, File: attempt.FinalPath, Tries: attempt.Tries})
		}(asset)
	}
	wg.Wait()

	if e.opts.SaveMetadata && work.info != nil && len(result.Failures) == 0 {
		if err := metadata.FromIllust(work.info, work.assets, work.ugoira).Save(dir); err != nil {
			log.WithError(err).Warn("Failed to save metadata")
		}
	}

	result.Duration = time.Since(start)
	if len(result.Failures) > 0 {
		log.WarnWithFields("Item finished with failures", map[string]interface{}{
			"completed": result.Completed,
			"failed":    len(result.Failures),
		})
		e.emit(Event{Type: EventItemFailed, ItemID: item.ID, Err: fmt.Errorf("%d of %d files failed", len(result.Failures), result.Assets)})
		return result
	}

	log.DebugWithFields("Worker completed item", map[string]interface{}{
		"worker_id": workerID,
		"files":     result.Completed,
		"duration":  result.Duration,
	})
	e.emit(Event{Type: EventItemCompleted, ItemID: item.ID})
	return result
}

// resolveAssets lists the files of a work. Animated works resolve to their
// frame archive when ugoira downloads are enabled.
func (e *Engine) resolveAssets(ctx context.Context, id uint64) (*workAssets, error) {
	work := &workAssets{}

	if e.opts.Ugoira || e.opts.SaveMetadata {
		info, err := e.api.IllustInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		work.info = info
	}

	if e.opts.Ugoira && work.info != nil && work.info.IllustType == pixiv.IllustTypeUgoira {
		meta, err := e.api.UgoiraMeta(ctx, id)
		if err != nil {
			return nil, err
		}
		src := meta.OriginalSrc
		if src == "" {
			src = meta.Src
		}
		work.ugoira = meta
		work.assets = []models.Asset{{URL: src, Width: work.info.Width, Height: work.info.Height}}
		return work, nil
	}

	pages, err := e.api.IllustPages(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		work.assets = append(work.assets, models.Asset{URL: p.URLs.Original, Width: p.Width, Height: p.Height})
	}
	return work, nil
}
