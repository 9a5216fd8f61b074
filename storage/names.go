package storage

import (
	"fmt"
	"path"
	"strings"
)

// CleanName validates a logical name and returns its canonical /-separated
// form. Names must be relative and may not escape the backend root.
func CleanName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}

	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the storage root", ErrInvalidName, name)
	}
	return clean, nil
}
