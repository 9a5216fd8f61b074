package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/tailored-agentic-units/gamesave/storage"
)

func TestOpen_File(t *testing.T) {
	root := t.TempDir()

	b, err := storage.Open(&storage.Config{Driver: "file", Path: root})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	fb, ok := b.(*storage.FileBackend)
	if !ok {
		t.Fatalf("Open() returned %T, want *storage.FileBackend", b)
	}
	if fb.Root() != filepath.Clean(root) {
		t.Errorf("Root() = %q, want %q", fb.Root(), root)
	}
}

func TestOpen_EmptyDriverDefaultsToFile(t *testing.T) {
	b, err := storage.Open(&storage.Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := b.(*storage.FileBackend); !ok {
		t.Errorf("Open() returned %T, want *storage.FileBackend", b)
	}
}

func TestOpen_Memory(t *testing.T) {
	b, err := storage.Open(&storage.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := b.(*storage.MemoryBackend); !ok {
		t.Errorf("Open() returned %T, want *storage.MemoryBackend", b)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := storage.Open(&storage.Config{Driver: "nonexistent"}); err == nil {
		t.Error("Open() error = nil, want error for unknown driver")
	}
}

func TestRegister(t *testing.T) {
	sentinel := errors.New("custom driver called")
	storage.Register("test-custom", func(cfg *storage.Config) (storage.Backend, error) {
		return nil, sentinel
	})

	if !slices.Contains(storage.Drivers(), "test-custom") {
		t.Errorf("Drivers() = %v, want to contain %q", storage.Drivers(), "test-custom")
	}

	if _, err := storage.Open(&storage.Config{Driver: "test-custom"}); !errors.Is(err, sentinel) {
		t.Errorf("Open() error = %v, want %v", err, sentinel)
	}
}

func TestOpen_FileWithLock(t *testing.T) {
	b, err := storage.Open(&storage.Config{Driver: "file", Path: t.TempDir(), FileLock: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := b.Write(context.Background(), "save.dat", []byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}
