package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestRotatingFileWriter_BasicWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "test.log")

	w, err := NewRotatingFileWriter(path, 1, 3)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()

	msg := "hello world\n"
	n, err := w.Write([]byte(msg))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("Write returned %d, want %d", n, len(msg))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != msg {
		t.Fatalf("file content = %q, want %q", string(data), msg)
	}
}

func TestRotatingFileWriter_AppendsToExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := newRotatingFileWriter(path, 15, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if w.currentSize != 10 {
		t.Fatalf("currentSize = %d, want 10", w.currentSize)
	}

	if _, err := w.Write([]byte("abcdef")); err != nil {
		t.Fatal(err)
	}
	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected backup after exceeding size: %v", err)
	}
	if string(backup) != "0123456789" {
		t.Fatalf("backup = %q", backup)
	}
}

func TestRotatingFileWriter_RotatesAtSizeLimit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := newRotatingFileWriter(path, 50, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	line := func(c string) []byte { return []byte(strings.Repeat(c, 39) + "\n") }
	for _, c := range []string{"A", "B", "C", "D"} {
		if _, err := w.Write(line(c)); err != nil {
			t.Fatalf("Write %s: %v", c, err)
		}
	}

	for file, want := range map[string]string{
		path:        string(line("D")),
		path + ".1": string(line("C")),
		path + ".2": string(line("B")),
	} {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", file, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", file, data, want)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected backup .3 to be pruned, got %v", err)
	}
}

func TestRotatingFileWriter_NoBackups(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := newRotatingFileWriter(path, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, s := range []string{"12345678", "abcdefgh"} {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abcdefgh" {
		t.Fatalf("file content = %q", data)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Errorf("expected no backup, got %v", err)
	}
}

func TestRotatingFileWriter_IgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	for _, name := range []string{"test.log.old", "test.log.0", "other.log.1"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := newRotatingFileWriter(path, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if got := w.listBackups(); len(got) != 0 {
		t.Fatalf("listBackups = %v, want none", got)
	}
}

func TestRotatingFileWriter_Concurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := newRotatingFileWriter(path, 1<<20, 1)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				if _, err := w.Write([]byte("line\n")); err != nil {
					t.Error(err)
					return
				}
			}
		})
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "line\n"); got != 800 {
		t.Fatalf("got %d lines, want 800", got)
	}
}

func TestRotatingFileWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()
	w, err := NewRotatingFileWriter(filepath.Join(t.TempDir(), "test.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing to closed writer")
	}
}

func TestRotatingFileWriter_Rotate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte("run 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingFileWriter(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	// already empty, so nothing moves
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := w.Write([]byte("run 2\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	for file, want := range map[string]string{
		path:        "run 2\n",
		path + ".1": "run 1\n",
	} {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", file, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", file, data, want)
		}
	}
	if _, err := os.Stat(path + ".2"); !os.IsNotExist(err) {
		t.Errorf("expected no backup .2, got %v", err)
	}
	if err := w.Rotate(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Rotate after Close = %v, want %v", err, os.ErrClosed)
	}
}
