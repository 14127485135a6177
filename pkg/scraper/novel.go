package scraper

import (
	"context"
	"fmt"
	"path/filepath"

	"pixivdl/pkg/storage"
)

// DownloadNovel writes the text of a novel to dest. An empty dest means
// <id>.txt in the current directory; an existing directory gets <id>.txt
// inside it. It returns the path written.
func (s *Scraper) DownloadNovel(ctx context.Context, novelID uint64, dest string) (string, error) {
	novel, err := s.api.Novel(ctx, novelID)
	if err != nil {
		return "", fmt.Errorf("fetch novel %d: %w", novelID, err)
	}

	name := fmt.Sprintf("%d.txt", novelID)
	switch {
	case dest == "":
		dest = name
	case storage.DirExists(dest):
		dest = filepath.Join(dest, name)
	}

	if err := storage.WriteFileAtomic(dest, []byte(novel.Content), 0644); err != nil {
		return "", fmt.Errorf("write novel %d: %w", novelID, err)
	}

	s.logger.InfoWithFields("Novel saved", map[string]interface{}{
		"novel_id": novelID,
		"title":    novel.Title,
		"path":     dest,
		"bytes":    len(novel.Content),
	})
	return dest, nil
}
