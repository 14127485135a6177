package storage

import (
	"fmt"
	"os"
	"path/filepath"

	errs "pixivdl/pkg/errors"
)

// TempPath returns the in-progress path used for dir/filename
func TempPath(dir, filename string) string {
	return filepath.Join(dir, TempPrefix+filename)
}

// AtomicFile writes to dir/._<name> and moves the result to dir/<name> on
// Commit, so a partially written file never carries the final name.
type AtomicFile struct {
	finalPath string
	tempPath  string
	file      *os.File
}

// NewAtomicFile prepares an atomic write of dir/filename
func NewAtomicFile(dir, filename string) *AtomicFile {
	return &AtomicFile{
		finalPath: filepath.Join(dir, filename),
		tempPath:  TempPath(dir, filename),
	}
}

// FinalPath returns the destination path
func (a *AtomicFile) FinalPath() string { return a.finalPath }

// TempPathName returns the in-progress path
func (a *AtomicFile) TempPathName() string { return a.tempPath }

// Open creates or truncates the temp file. Calling it again discards what an
// earlier attempt wrote.
func (a *AtomicFile) Open() (*os.File, error) {
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
	f, err := os.Create(a.tempPath)
	if err != nil {
		return nil, errs.NewIO("create temp file", err)
	}
	a.file = f
	return f, nil
}

// Commit flushes the temp file and renames it to the final path
func (a *AtomicFile) Commit() error {
	if a.file == nil {
		return errs.NewIO("commit", fmt.Errorf("%s was never opened", a.tempPath))
	}
	f := a.file
	a.file = nil

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(a.tempPath)
		return errs.NewIO("sync temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(a.tempPath)
		return errs.NewIO("close temp file", err)
	}
	if err := os.Rename(a.tempPath, a.finalPath); err != nil {
		os.Remove(a.tempPath)
		return errs.NewIO("rename temp file", err)
	}
	return nil
}

// Abort closes and removes the temp file
func (a *AtomicFile) Abort() {
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
	os.Remove(a.tempPath)
}

// WriteFileAtomic writes data to path through a ._ temp file in the same directory
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	af := NewAtomicFile(filepath.Dir(path), filepath.Base(path))
	f, err := af.Open()
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		af.Abort()
		return errs.NewIO("write temp file", err)
	}
	if err := f.Chmod(perm); err != nil {
		af.Abort()
		return errs.NewIO("chmod temp file", err)
	}
	return af.Commit()
}
