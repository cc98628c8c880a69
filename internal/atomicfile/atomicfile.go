/*
Copyright © 2025 Logicos Software

Package atomicfile implements durable atomic file writes: write to a
temporary file in the target directory, fsync the file, rename it into
place, then fsync the directory entry. The target path only exists
once the rename succeeds, so a crash never leaves a partial artifact.
*/
package atomicfile

import (
	"os"
	"path/filepath"

	"ssops/internal/errs"
)

// Writer writes to a temporary file and atomically renames it onto the
// target path when Commit is called.
type Writer struct {
	targetPath string
	tempPath   string
	tempFile   *os.File
	written    bool
	committed  bool
}

// New creates a Writer for targetPath. If the target already exists and
// force is false, it fails so callers never silently clobber prior output.
func New(targetPath string, force bool) (*Writer, error) {
	if !force {
		if _, err := os.Stat(targetPath); err == nil {
			return nil, errs.New(errs.KindKeyExists, "output already exists: "+targetPath)
		}
	}

	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "create directory "+dir, err)
	}

	tempPath := filepath.Join(dir, "."+filepath.Base(targetPath)+".tmp")
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "create temp file "+tempPath, err)
	}

	return &Writer{targetPath: targetPath, tempPath: tempPath, tempFile: f}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.tempFile.Write(p)
	if n > 0 {
		w.written = true
	}
	return n, err
}

// Commit fsyncs the temp file, closes it, renames it onto the target path,
// then fsyncs the containing directory so the rename itself is durable.
func (w *Writer) Commit() error {
	if w.committed {
		return nil
	}
	if err := w.tempFile.Sync(); err != nil {
		return errs.Wrap(errs.KindIoFailure, "sync temp file", err)
	}
	if err := w.tempFile.Close(); err != nil {
		return errs.Wrap(errs.KindIoFailure, "close temp file", err)
	}
	if err := os.Rename(w.tempPath, w.targetPath); err != nil {
		os.Remove(w.tempPath)
		return errs.Wrap(errs.KindIoFailure, "rename into place: "+w.targetPath, err)
	}
	if err := fsyncDir(filepath.Dir(w.targetPath)); err != nil {
		return errs.Wrap(errs.KindIoFailure, "sync directory", err)
	}
	w.committed = true
	return nil
}

// Abort discards the write, removing the temp file. Safe to call after Commit.
func (w *Writer) Abort() {
	if w.committed {
		return
	}
	w.tempFile.Close()
	os.Remove(w.tempPath)
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// WriteFile atomically and durably writes data to path.
func WriteFile(path string, data []byte, force bool) error {
	w, err := New(path, force)
	if err != nil {
		return err
	}
	defer w.Abort()
	if _, err := w.Write(data); err != nil {
		return errs.Wrap(errs.KindIoFailure, "write "+path, err)
	}
	return w.Commit()
}
