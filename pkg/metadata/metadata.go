package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/storage"
)

// WorkMetadata is the sidecar written next to a downloaded work
type WorkMetadata struct {
	// Core identifiers
	ID    uint64 `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`

	Description string `json:"description,omitempty"`
	Tags        []Tag  `json:"tags,omitempty"`

	Owner Owner `json:"owner"`

	PageCount     int `json:"page_count"`
	BookmarkCount int `json:"bookmark_count"`

	// Timestamps as sent by the API
	CreateDate   string    `json:"create_date,omitempty"`
	UploadDate   string    `json:"upload_date,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`

	Files  []File        `json:"files"`
	Frames []UgoiraFrame `json:"frames,omitempty"`
}

// Tag is a work tag with its English translation when there is one
type Tag struct {
	Name        string `json:"name"`
	Translation string `json:"translation,omitempty"`
}

// Owner is the author of a work
type Owner struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// File is one downloaded asset
type File struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// UgoiraFrame is one frame inside an animation archive
type UgoiraFrame struct {
	File  string `json:"file"`
	Delay int    `json:"delay_ms"`
}

// TypeName maps an illust type code to a readable name
func TypeName(illustType int) string {
	switch illustType {
	case pixiv.IllustTypeIllust:
		return "illust"
	case pixiv.IllustTypeManga:
		return "manga"
	case pixiv.IllustTypeUgoira:
		return "ugoira"
	default:
		return "unknown"
	}
}

// FromIllust builds the sidecar from work metadata and the assets that were downloaded
func FromIllust(info *pixiv.IllustInfo, assets []models.Asset, ugoira *pixiv.UgoiraMeta) *WorkMetadata {
	meta := &WorkMetadata{
		ID:          uint64(info.ID),
		Title:       info.Title,
		URL:         pixiv.ArtworkURL(uint64(info.ID)),
		Type:        TypeName(info.IllustType),
		Description: info.Description,
		Owner: Owner{
			ID:   uint64(info.UserID),
			Name: info.UserName,
		},
		PageCount:     info.PageCount,
		BookmarkCount: info.BookmarkCount,
		CreateDate:    info.CreateDate,
		UploadDate:    info.UploadDate,
		DownloadedAt:  time.Now().UTC(),
	}

	for _, t := range info.Tags.Tags {
		meta.Tags = append(meta.Tags, Tag{Name: t.Tag, Translation: t.Translation["en"]})
	}

	for _, a := range assets {
		meta.Files = append(meta.Files, File{
			Name:   filepath.Base(a.URL),
			URL:    a.URL,
			Width:  a.Width,
			Height: a.Height,
		})
	}

	if ugoira != nil {
		for _, f := range ugoira.Frames {
			meta.Frames = append(meta.Frames, UgoiraFrame{File: f.File, Delay: f.Delay})
		}
	}

	return meta
}

// Path returns the sidecar path of work id inside dir
func Path(dir string, id uint64) string {
	return filepath.Join(dir, strconv.FormatUint(id, 10)+".json")
}

// Save writes the metadata to dir/<id>.json
func (m *WorkMetadata) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := storage.WriteFileAtomic(Path(dir, m.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the sidecar of work id from dir
func Load(dir string, id uint64) (*WorkMetadata, error) {
	data, err := os.ReadFile(Path(dir, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta WorkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Exists checks if a sidecar exists for work id in dir
func Exists(dir string, id uint64) bool {
	_, err := os.Stat(Path(dir, id))
	return err == nil
}

// GetAspectRatio returns the aspect ratio of the first file as a string
func (m *WorkMetadata) GetAspectRatio() string {
	if len(m.Files) == 0 || m.Files[0].Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Files[0].Width) / float64(m.Files[0].Height)

	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}
