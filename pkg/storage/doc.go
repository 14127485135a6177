// Package storage handles the on-disk side of a download: the index of files
// already present, used for incremental runs, and atomic writes through
// "._"-prefixed temp files.
//
//	idx, err := storage.BuildIndex("downloads")
//	if idx.Contains(12345) {
//	    // skip
//	}
//
//	af := storage.NewAtomicFile("downloads", "12345_p0.png")
//	f, err := af.Open()
//	// write to f
//	err = af.Commit()
package storage
