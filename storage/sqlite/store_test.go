package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/gamesave/storage"
	"github.com/tailored-agentic-units/gamesave/storage/sqlite"
	"github.com/tailored-agentic-units/gamesave/storage/storagetest"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return openTestStore(t)
	})
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := sqlite.Open("  "); err == nil {
		t.Error("Open() error = nil, want error for empty path")
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	ctx := context.Background()

	first, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.Write(ctx, "save.dat", []byte("persisted")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer second.Close()

	got, err := second.Read(ctx, "save.dat")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("Read() = %q, want %q", got, "persisted")
	}
}

func TestRegisteredDriver(t *testing.T) {
	b, err := storage.Open(&storage.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "saves.db")})
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	store, ok := b.(*sqlite.Store)
	if !ok {
		t.Fatalf("storage.Open() returned %T, want *sqlite.Store", b)
	}
	defer store.Close()
}

func TestStore_ResolvePath(t *testing.T) {
	store := openTestStore(t)

	got := store.ResolvePath("slot1/save.dat")
	if got == "" || got[:len("sqlite://")] != "sqlite://" {
		t.Errorf("ResolvePath() = %q, want sqlite:// location", got)
	}
}

func TestStore_Delete_ClosedWrapsSentinel(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.Delete(context.Background(), "save.dat"); !errors.Is(err, storage.ErrWriteFailed) {
		t.Errorf("Delete() error = %v, want %v", err, storage.ErrWriteFailed)
	}
}
