// Package storagetest provides a conformance suite that every
// storage.Backend implementation runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/gamesave/storage"
)

// Run exercises the Backend contract against fresh backends produced by
// newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Helper()

	t.Run("ExistsMissing", func(t *testing.T) {
		b := newBackend(t)

		ok, err := b.Exists(context.Background(), "missing.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("Exists() = true, want false")
		}
	})

	t.Run("ReadMissing", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.Read(context.Background(), "missing.dat")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Read() error = %v, want %v", err, storage.ErrNotFound)
		}
	})

	t.Run("WriteRead", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Write(ctx, "save.dat", []byte("v1")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		ok, err := b.Exists(ctx, "save.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !ok {
			t.Error("Exists() = false, want true after Write")
		}

		got, err := b.Read(ctx, "save.dat")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != "v1" {
			t.Errorf("Read() = %q, want %q", got, "v1")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Write(ctx, "save.dat", []byte("a much longer first value")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := b.Write(ctx, "save.dat", []byte("v2")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := b.Read(ctx, "save.dat")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != "v2" {
			t.Errorf("Read() = %q, want %q (no leftover bytes)", got, "v2")
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Write(ctx, "empty.dat", nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		ok, err := b.Exists(ctx, "empty.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !ok {
			t.Error("Exists() = false, want true for empty entry")
		}
		got, err := b.Read(ctx, "empty.dat")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Read() = %q, want empty", got)
		}
	})

	t.Run("NestedName", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Write(ctx, "slot1/profile.dat", []byte("nested")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := b.Read(ctx, "slot1/profile.dat")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != "nested" {
			t.Errorf("Read() = %q, want %q", got, "nested")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Write(ctx, "save.dat", []byte("v1")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := b.Delete(ctx, "save.dat"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		ok, err := b.Exists(ctx, "save.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("Exists() = true, want false after Delete")
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		if err := b.Delete(ctx, "missing.dat"); err != nil {
			t.Errorf("Delete() error = %v, want nil for missing name", err)
		}
		ok, err := b.Exists(ctx, "missing.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("Exists() = true, want false")
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		for _, name := range []string{"", "../escape.dat", "/abs.dat"} {
			if err := b.Write(ctx, name, []byte("x")); !errors.Is(err, storage.ErrInvalidName) {
				t.Errorf("Write(%q) error = %v, want %v", name, err, storage.ErrInvalidName)
			}
		}
	})

	t.Run("ResolvePathPure", func(t *testing.T) {
		b := newBackend(t)

		first := b.ResolvePath("save.dat")
		if first == "" {
			t.Fatal("ResolvePath() returned empty string")
		}
		if again := b.ResolvePath("save.dat"); again != first {
			t.Errorf("ResolvePath() = %q, then %q; want deterministic", first, again)
		}

		ok, err := b.Exists(context.Background(), "save.dat")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("ResolvePath() created an entry")
		}
	})

	t.Run("List", func(t *testing.T) {
		b := newBackend(t)
		lister, ok := b.(storage.Lister)
		if !ok {
			t.Skip("backend does not implement storage.Lister")
		}
		ctx := context.Background()

		for _, name := range []string{"b.dat", "a.dat", "slot/c.dat"} {
			if err := b.Write(ctx, name, []byte(name)); err != nil {
				t.Fatalf("Write(%q) error = %v", name, err)
			}
		}

		names, err := lister.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []string{"a.dat", "b.dat", "slot/c.dat"}
		if fmt.Sprint(names) != fmt.Sprint(want) {
			t.Errorf("List() = %v, want %v", names, want)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		b := newBackend(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := b.Write(ctx, "save.dat", []byte("x")); !errors.Is(err, context.Canceled) {
			t.Errorf("Write() error = %v, want %v", err, context.Canceled)
		}
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		const n = 20

		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			go func() {
				defer wg.Done()
				if err := b.Write(ctx, "shared.dat", []byte(fmt.Sprintf("value-%02d", i))); err != nil {
					t.Errorf("Write() error = %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := b.Read(ctx, "shared.dat")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(got) != len("value-00") {
			t.Errorf("Read() = %q, want one complete value", got)
		}
	})
}
