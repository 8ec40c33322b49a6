package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"knowledgebot/pkg/config"
)

// Cache persists a Config as indented JSON at a fixed path.
type Cache struct {
	path string
}

// NewCache creates a cache backed by path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached config. ok is false when no cache file exists.
func (c *Cache) Load() (cfg Config, ok bool, err error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, config.NewConfigError(c.path, "cannot read cache file", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, config.NewConfigError(c.path, "cache file is not valid JSON", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, false, config.NewConfigError(c.path, "cache file is incomplete", err)
	}
	return cfg, true, nil
}

// Save overwrites the cache file. The write goes to a temp file in the same
// directory and is renamed into place, so readers never see a partial file.
func (c *Cache) Save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal assistant config: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config.NewConfigError(c.path, "cannot create cache directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return config.NewConfigError(c.path, "cannot create cache file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return config.NewConfigError(c.path, "cannot write cache file", err)
	}
	if err := tmp.Close(); err != nil {
		return config.NewConfigError(c.path, "cannot write cache file", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return config.NewConfigError(c.path, "cannot replace cache file", err)
	}
	return nil
}

// Remove deletes the cache file. A missing file is not an error.
func (c *Cache) Remove() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.NewConfigError(c.path, "cannot remove cache file", err)
	}
	return nil
}
