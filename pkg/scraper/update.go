package scraper

import (
	"context"
	"fmt"

	"pixivdl/pkg/checkpoint"
	"pixivdl/pkg/models"
)

// Update refreshes dir from its .pixiv_update descriptor. Only works missing
// from dir are downloaded, named directories are off and the descriptor is
// left as it is.
func (s *Scraper) Update(ctx context.Context, dir string, opts Options) (*models.RunReport, error) {
	upd, err := checkpoint.NewManager(dir, s.logger).Load()
	if err != nil {
		return nil, err
	}
	if upd == nil {
		return nil, fmt.Errorf("no %s file in %s", checkpoint.FileName, dir)
	}

	s.logger.InfoWithFields("Replaying update file", map[string]interface{}{
		"dir":        dir,
		"source":     upd.Source.String(),
		"dir_policy": string(upd.DirPolicy),
		"created_at": upd.CreatedAt,
	})

	opts.BaseDir = dir
	opts.Incremental = true
	opts.IndexDir = dir
	opts.NamedDir = false
	opts.WriteUpdateFile = false
	if upd.DirPolicy != "" {
		opts.Download.DirPolicy = upd.DirPolicy
	}

	return s.Run(ctx, upd.Source, opts)
}
