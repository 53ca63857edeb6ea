package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile buffers writes into a temporary file next to its destination and
// moves it into place on Commit, so readers never observe a partial artifact.
type AtomicFile struct {
	path string
	file *os.File
	buf  *bufio.Writer
	done bool
}

// CreateAtomic opens a temporary file in the directory of path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	return &AtomicFile{
		path: path,
		file: file,
		buf:  bufio.NewWriterSize(file, 1<<16),
	}, nil
}

// Write implements io.Writer.
func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.buf.Write(p)
}

// Commit flushes, syncs and renames the temporary file onto the destination.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if err := a.buf.Flush(); err != nil {
		a.discard()
		return err
	}
	if err := a.file.Sync(); err != nil {
		a.discard()
		return err
	}
	if err := a.file.Close(); err != nil {
		_ = os.Remove(a.file.Name())
		return err
	}
	if err := os.Rename(a.file.Name(), a.path); err != nil {
		_ = os.Remove(a.file.Name())
		return fmt.Errorf("failed to replace %s: %w", a.path, err)
	}
	return nil
}

// Abort drops the temporary file. It is a no-op after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.discard()
}

func (a *AtomicFile) discard() {
	_ = a.file.Close()
	_ = os.Remove(a.file.Name())
}

// WriteFileAtomic runs fn against a temporary file and commits it to path only
// when fn succeeds.
func WriteFileAtomic(path string, fn func(w io.Writer) error) error {
	f, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Abort()
		return err
	}
	return f.Commit()
}
