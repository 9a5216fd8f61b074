package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

var (
	observers = map[string]Observer{
		"noop":  NoOpObserver{},
		"slog":  NewSlogObserver(slog.Default()),
		"trace": TraceObserver{},
	}
	mutex sync.RWMutex
)

// GetObserver returns a registered observer by name.
// Pre-registered observers: "noop", "slog" (default logger) and "trace".
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	obs, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}

// Observers returns the registered observer names in lexical order.
func Observers() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(observers))
	for name := range observers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the observer for a comma-separated list of registered
// names. Several names fan out through a MultiObserver; an empty list yields
// NoOpObserver.
func Resolve(names string) (Observer, error) {
	var selected []Observer
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		obs, err := GetObserver(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, obs)
	}

	switch len(selected) {
	case 0:
		return NoOpObserver{}, nil
	case 1:
		return selected[0], nil
	default:
		return NewMultiObserver(selected...), nil
	}
}
