package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RotatingFileWriter is the JSON log file of a simulation run. It appends to
// path, moving the file aside to numbered backups (<path>.1 is the newest)
// once a write would grow it past the size limit, or when a new run asks for
// a fresh file via Rotate. At most maxFiles backups are kept.
//
// Driver workers log concurrently, so every method is safe for concurrent
// use.
type RotatingFileWriter struct {
	mu          sync.Mutex
	path        string
	limit       int64
	maxFiles    int
	currentSize int64
	file        *os.File
}

// NewRotatingFileWriter opens path in append mode, creating it and its parent
// directory as necessary. maxSizeMB is clamped to at least 1. With maxFiles
// below 1 no backups are kept, and rotating discards the file's content.
func NewRotatingFileWriter(path string, maxSizeMB, maxFiles int) (*RotatingFileWriter, error) {
	return newRotatingFileWriter(path, int64(max(maxSizeMB, 1))<<20, max(maxFiles, 0))
}

func newRotatingFileWriter(path string, limit int64, maxFiles int) (*RotatingFileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	w := &RotatingFileWriter{path: path, limit: limit, maxFiles: maxFiles}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p, first rotating if p would take a non-empty file past the
// limit. A record is never split between files.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.currentSize > 0 && w.currentSize+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

// Rotate moves whatever the file holds to the first backup, so that the next
// write starts an empty file. It does nothing if the file is already empty.
func (w *RotatingFileWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}
	if w.currentSize == 0 {
		return nil
	}
	return w.rotate()
}

// Close closes the file. Writes after Close fail, and Close is idempotent.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// open must be called with w.mu held.
func (w *RotatingFileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("logging: %w", err)
	}
	w.file, w.currentSize = f, info.Size()
	return nil
}

// rotate must be called with w.mu held. On failure the writer is left
// closed.
func (w *RotatingFileWriter) rotate() error {
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("logging: rotate: %w", err)
	}
	w.shift()
	if err := w.open(); err != nil {
		return fmt.Errorf("logging: rotate: %w", err)
	}
	return nil
}

// shift renumbers the backups, oldest first so nothing is overwritten,
// dropping any past maxFiles, then moves the file itself to backup 1.
func (w *RotatingFileWriter) shift() {
	backups := w.listBackups()
	for _, n := range slices.Backward(backups) {
		if n >= w.maxFiles {
			_ = os.Remove(w.backupPath(n))
		} else {
			_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
		}
	}
	if w.maxFiles == 0 {
		_ = os.Remove(w.path)
	} else {
		_ = os.Rename(w.path, w.backupPath(1))
	}
}

func (w *RotatingFileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// listBackups returns the numbers of the existing backups, ascending.
func (w *RotatingFileWriter) listBackups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)
