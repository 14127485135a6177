package storage

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TempPrefix marks in-progress downloads; such files never count as present
const TempPrefix = "._"

// FileIndex is the set of files already present under a directory tree.
// It is built once before a run and only read afterwards.
type FileIndex struct {
	root  string
	paths []string
}

// BuildIndex walks root and records every regular file, relative to root.
// A missing root yields an empty index.
func BuildIndex(root string) (*FileIndex, error) {
	idx := &FileIndex{root: root}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), TempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		idx.paths = append(idx.paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Root returns the directory the index was built from
func (i *FileIndex) Root() string {
	if i == nil {
		return ""
	}
	return i.root
}

// Len returns the number of indexed files
func (i *FileIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.paths)
}

// Contains reports whether any indexed path contains the decimal id.
// This is a plain substring match: 1234 also matches 12345_p0.png.
func (i *FileIndex) Contains(id uint64) bool {
	if i == nil {
		return false
	}
	needle := strconv.FormatUint(id, 10)
	for _, p := range i.paths {
		if strings.Contains(p, needle) {
			return true
		}
	}
	return false
}

// IllustIDs returns the distinct work ids found as the leading digits of file
// names, in ascending order. Directory names are ignored: every file a work
// leaves behind starts with its id, while a numeric series or year directory
// such as 2023/ does not name a work.
func (i *FileIndex) IllustIDs() []uint64 {
	if i == nil {
		return nil
	}
	seen := make(map[uint64]struct{})
	for _, p := range i.paths {
		if id, ok := leadingID(path.Base(p)); ok {
			seen[id] = struct{}{}
		}
	}

	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// leadingID parses names like 12345_p0.png or 12345.json
func leadingID(name string) (uint64, bool) {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	if end < len(name) && name[end] != '_' && name[end] != '.' {
		return 0, false
	}
	id, err := strconv.ParseUint(name[:end], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// DirExists reports whether path is an existing directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
