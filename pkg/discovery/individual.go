package discovery

import (
	"context"

	"pixivdl/pkg/models"
)

// individual emits the given ids without any API call
func (e *Engine) individual(ctx context.Context, em *emitter, ids []uint64, baseDir string) error {
	dir := models.ResolvedDir(baseDir)
	for _, id := range ids {
		if _, err := em.emit(ctx, id, dir); err != nil {
			return err
		}
	}
	return nil
}
