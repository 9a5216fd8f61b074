package storage

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Backend from configuration.
type Factory func(cfg *Config) (Backend, error)

var (
	drivers = map[string]Factory{
		"file":   newFileFromConfig,
		"memory": func(*Config) (Backend, error) { return NewMemoryBackend(), nil },
	}
	mutex sync.RWMutex
)

// Register adds or replaces a named driver. Backend packages register
// themselves from init, so importing them makes the driver available.
func Register(driver string, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	drivers[driver] = factory
}

// Drivers returns the registered driver names in lexical order.
func Drivers() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a Backend for cfg.Driver. An empty driver selects "file".
func Open(cfg *Config) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "file"
	}

	mutex.RLock()
	factory, exists := drivers[driver]
	mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
	return factory(cfg)
}

func newFileFromConfig(cfg *Config) (Backend, error) {
	root := cfg.Path
	if root == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		root = dir
	}

	var opts []FileOption
	if cfg.FileLock {
		opts = append(opts, WithFileLock())
	}
	return NewFileBackend(root, opts...), nil
}
