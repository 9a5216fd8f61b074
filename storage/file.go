package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dolthub/fslock"
	"github.com/google/uuid"
)

const (
	tempPrefix   = ".tmp-"
	lockFileName = ".gamesave.lock"
)

// FileOption configures a file backend.
type FileOption func(*FileBackend)

// WithFileLock serializes writers and deleters of the same root directory,
// including writers in other processes, with a lock file under root.
func WithFileLock() FileOption {
	return func(b *FileBackend) {
		b.lock = fslock.New(filepath.Join(b.root, lockFileName))
	}
}

// FileBackend stores each entry as a file under a root directory. Names map
// 1:1 to relative file paths. Writes go to a temporary file in the target
// directory and are renamed into place, so readers never observe a partial
// file.
type FileBackend struct {
	root string
	lock *fslock.Lock
	mu   sync.Mutex
}

// NewFileBackend creates a Backend rooted at root. The directory is created
// on first write.
func NewFileBackend(root string, opts ...FileOption) *FileBackend {
	b := &FileBackend{root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Root returns the base directory.
func (b *FileBackend) Root() string {
	return b.root
}

func (b *FileBackend) ResolvePath(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

func (b *FileBackend) path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

func (b *FileBackend) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := b.path(name)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %v", ErrReadFailed, name, err)
	}
	return info.Mode().IsRegular(), nil
}

func (b *FileBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, name, err)
	}
	return data, nil
}

func (b *FileBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(name)
	if err != nil {
		return err
	}

	unlock, err := b.acquire()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}
	defer unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}

	tmpName := filepath.Join(dir, tempPrefix+uuid.Must(uuid.NewV7()).String())
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, name, err)
	}

	return nil
}

func (b *FileBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(name)
	if err != nil {
		return err
	}

	unlock, err := b.acquire()
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrWriteFailed, name, err)
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %w", ErrWriteFailed, name, err)
	}

	dir := filepath.Dir(path)
	for dir != b.root && strings.HasPrefix(dir, b.root) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}

	return nil
}

func (b *FileBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == b.root {
				return fs.SkipAll
			}
			return err
		}

		if strings.HasPrefix(d.Name(), ".") && path != b.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	sort.Strings(names)
	return names, nil
}

// acquire takes the in-process mutex and, when configured, the cross-process
// lock file. The returned func releases both.
func (b *FileBackend) acquire() (func(), error) {
	if b.lock == nil {
		return func() {}, nil
	}

	b.mu.Lock()
	if err := os.MkdirAll(b.root, 0o755); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if err := b.lock.Lock(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	return func() {
		b.lock.Unlock()
		b.mu.Unlock()
	}, nil
}
