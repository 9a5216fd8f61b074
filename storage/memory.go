package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryBackend keeps entries in process memory. It is intended for tests and
// for callers that want a throwaway store. All methods are safe for
// concurrent use.
type MemoryBackend struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory Backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (m *MemoryBackend) ResolvePath(name string) string {
	return "memory://" + name
}

func (m *MemoryBackend) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := CleanName(name)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *MemoryBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return slices.Clone(data), nil
}

func (m *MemoryBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanName(name)
	if err != nil {
		return err
	}

	value := slices.Clone(data)
	if value == nil {
		value = []byte{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanName(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
