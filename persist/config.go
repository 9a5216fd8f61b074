package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/tailored-agentic-units/gamesave/storage"
)

// Config holds engine construction parameters.
type Config struct {
	Storage  storage.Config `json:"storage" envPrefix:"GAMESAVE_"`
	Compress bool           `json:"compress,omitempty" env:"GAMESAVE_COMPRESS"`
	Observer string         `json:"observer,omitempty" env:"GAMESAVE_OBSERVER"` // comma-separated observability registry names
}

// DefaultConfig returns the file driver in the user's config directory,
// uncompressed, with events discarded.
func DefaultConfig() Config {
	return Config{
		Storage:  storage.DefaultConfig(),
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Storage.Merge(&source.Storage)

	if source.Compress {
		c.Compress = true
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// ParseEnv overlays GAMESAVE_* environment variables onto cfg. Unset
// variables leave the current value in place.
func ParseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ResolveConfig builds the effective configuration: defaults, then the JSON
// file when filename is non-empty, then the environment.
func ResolveConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename != "" {
		loaded, err := LoadConfig(filename)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
