package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirName is the directory created under the user config directory
// when no path is configured.
const DefaultDirName = "gamesave"

// Config selects and parameterizes a Backend. Env tags are unprefixed; parse
// them under a prefix such as GAMESAVE_ so PATH is never read directly.
type Config struct {
	Driver   string `json:"driver,omitempty" env:"DRIVER"`       // registered driver name; defaults to "file"
	Path     string `json:"path,omitempty" env:"PATH"`           // file root or database file
	URL      string `json:"url,omitempty" env:"URL"`             // remote server base URL
	FileLock bool   `json:"file_lock,omitempty" env:"FILE_LOCK"` // cross-process writer lock for the file driver
}

// DefaultConfig returns the default storage configuration: the file driver
// rooted at the user's config directory.
func DefaultConfig() Config {
	return Config{Driver: "file"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.FileLock {
		c.FileLock = true
	}
}

// DefaultDir returns the platform's per-user data location for saves.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, DefaultDirName), nil
}
