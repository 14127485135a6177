package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SourceKind identifies what a Source points at
type SourceKind string

const (
	SourceIndividual    SourceKind = "individual"
	SourceSeries        SourceKind = "series"
	SourceUserPosts     SourceKind = "user_posts"
	SourceUserBookmarks SourceKind = "user_bookmarks"
)

// Visibility selects public, private or both bookmark lists
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityBoth    Visibility = "both"
)

// ParseVisibility parses a visibility name; the empty string means public
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityPrivate, VisibilityBoth:
		return v, nil
	default:
		return "", fmt.Errorf("invalid visibility %q (want public, private or both)", s)
	}
}

// Source is a user-specified collection to crawl. Only the fields of its Kind are set.
type Source struct {
	Kind       SourceKind `json:"kind"`
	IllustIDs  []uint64   `json:"illust_ids,omitempty"`
	SeriesID   uint64     `json:"series_id,omitempty"`
	UserID     uint64     `json:"user_id,omitempty"`
	Tag        *string    `json:"tag,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
}

// Individual creates a source for a fixed list of works
func Individual(ids ...uint64) Source {
	return Source{Kind: SourceIndividual, IllustIDs: ids}
}

// Series creates a source for a manga series
func Series(seriesID uint64) Source {
	return Source{Kind: SourceSeries, SeriesID: seriesID}
}

// UserPosts creates a source for a user's works, optionally filtered by tag
func UserPosts(userID uint64, tag *string) Source {
	return Source{Kind: SourceUserPosts, UserID: userID, Tag: tag}
}

// UserBookmarks creates a source for a user's bookmarked works
func UserBookmarks(userID uint64, visibility Visibility) Source {
	return Source{Kind: SourceUserBookmarks, UserID: userID, Visibility: visibility}
}

// Validate checks that the fields required by Kind are present
func (s Source) Validate() error {
	switch s.Kind {
	case SourceIndividual:
		if len(s.IllustIDs) == 0 {
			return errors.New("individual source needs at least one work id")
		}
	case SourceSeries:
		if s.SeriesID == 0 {
			return errors.New("series source needs a series id")
		}
	case SourceUserPosts:
		if s.UserID == 0 {
			return errors.New("user posts source needs a user id")
		}
	case SourceUserBookmarks:
		if s.UserID == 0 {
			return errors.New("user bookmarks source needs a user id")
		}
		if _, err := ParseVisibility(string(s.Visibility)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	return nil
}

func (s Source) String() string {
	switch s.Kind {
	case SourceIndividual:
		return fmt.Sprintf("individual(%d works)", len(s.IllustIDs))
	case SourceSeries:
		return fmt.Sprintf("series %d", s.SeriesID)
	case SourceUserPosts:
		if s.Tag != nil {
			return fmt.Sprintf("user %d posts tagged %q", s.UserID, *s.Tag)
		}
		return fmt.Sprintf("user %d posts", s.UserID)
	case SourceUserBookmarks:
		return fmt.Sprintf("user %d bookmarks (%s)", s.UserID, s.Visibility)
	}
	return string(s.Kind)
}

// DirFuture is a destination directory that is decided once and read by many
// work items. Wait blocks until Resolve has been called.
type DirFuture struct {
	once sync.Once
	done chan struct{}
	dir  string
}

// NewDirFuture creates an unresolved future
func NewDirFuture() *DirFuture {
	return &DirFuture{done: make(chan struct{})}
}

// ResolvedDir creates a future that already holds dir
func ResolvedDir(dir string) *DirFuture {
	f := NewDirFuture()
	f.Resolve(dir)
	return f
}

// Resolve sets the directory. Only the first call has an effect; it reports
// whether this call was the one that resolved the future.
func (f *DirFuture) Resolve(dir string) bool {
	resolved := false
	f.once.Do(func() {
		f.dir = dir
		close(f.done)
		resolved = true
	})
	return resolved
}

// Wait returns the resolved directory
func (f *DirFuture) Wait(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.dir, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Resolved returns the directory without blocking; ok is false while unresolved
func (f *DirFuture) Resolved() (dir string, ok bool) {
	select {
	case <-f.done:
		return f.dir, true
	default:
		return "", false
	}
}

// WorkItem is one discovered work and where its files go
type WorkItem struct {
	ID  uint64
	Dir *DirFuture
}

// NewWorkItem creates a work item with a fixed destination
func NewWorkItem(id uint64, dir string) WorkItem {
	return WorkItem{ID: id, Dir: ResolvedDir(dir)}
}

// Asset is one downloadable file of a work
type Asset struct {
	URL    string
	Width  int
	Height int
}

// DownloadAttempt tracks one asset transfer
type DownloadAttempt struct {
	AssetURL  string
	FinalPath string
	TempPath  string
	Tries     int
}

// DirPolicy decides whether a work gets its own subdirectory
type DirPolicy string

const (
	DirPolicyAlways DirPolicy = "always"
	DirPolicyNever  DirPolicy = "never"
	DirPolicyAuto   DirPolicy = "auto"
)

// ParseDirPolicy parses a policy name; "multiple" is accepted as an alias of auto
func ParseDirPolicy(s string) (DirPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return DirPolicyAlways, nil
	case "never":
		return DirPolicyNever, nil
	case "auto", "multiple":
		return DirPolicyAuto, nil
	}
	return "", fmt.Errorf("invalid dir policy %q (want always, never or auto)", s)
}

// UseSubdir reports whether a work with assetCount files gets a <dest>/<id> directory
func (p DirPolicy) UseSubdir(assetCount int) bool {
	switch p {
	case DirPolicyAlways:
		return true
	case DirPolicyAuto:
		return assetCount > 1
	default:
		return false
	}
}

// Failure records one permanently failed item or asset
type Failure struct {
	ItemID uint64 `json:"item_id"`
	File   string `json:"file,omitempty"`
	Tries  int    `json:"tries,omitempty"`
	Error  string `json:"error"`
}

// RunReport summarizes a download run
type RunReport struct {
	RunID      string    `json:"run_id"`
	Source     Source    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ItemsDiscovered int `json:"items_discovered"`
	ItemsSkipped    int `json:"items_skipped"`
	ItemsCompleted  int `json:"items_completed"`
	ItemsFailed     int `json:"items_failed"`
	AssetsCompleted int `json:"assets_completed"`
	AssetsFailed    int `json:"assets_failed"`

	Failures []Failure `json:"failures,omitempty"`
	// DiscoveryError is set when discovery stopped early
	DiscoveryError string `json:"discovery_error,omitempty"`
}

// Failed reports whether anything failed permanently
func (r *RunReport) Failed() bool {
	return r.ItemsFailed > 0 || r.AssetsFailed > 0 || r.DiscoveryError != ""
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
