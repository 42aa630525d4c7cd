package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"demostats/internal/logging"
)

type fileDoc struct {
	Fingerprint string           `json:"fingerprint"`
	Demos       map[string]Entry `json:"demos"`
}

// FileCache keeps entries in a single JSON document.
type FileCache struct {
	path string
	mu   sync.Mutex
	doc  fileDoc
}

// OpenFile loads the cache at path. A missing file or one written under a
// different fingerprint yields an empty cache.
func OpenFile(path, fingerprint string) (*FileCache, error) {
	logger := logging.Logger()
	c := &FileCache{path: path, doc: fileDoc{Fingerprint: fingerprint, Demos: map[string]Entry{}}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warnf("cache %s unreadable, starting fresh: %v", path, err)
		return c, nil
	}
	if doc.Fingerprint != fingerprint {
		logger.Infof("analysis changed (%s -> %s), starting fresh", doc.Fingerprint, fingerprint)
		return c, nil
	}
	if doc.Demos != nil {
		c.doc.Demos = doc.Demos
	}
	return c, nil
}

// Has reports whether name is cached.
func (c *FileCache) Has(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.doc.Demos[name]
	return ok, nil
}

// Get returns the entry for name.
func (c *FileCache) Get(_ context.Context, name string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.doc.Demos[name]
	return e, ok, nil
}

// Put replaces the entry for name in memory.
func (c *FileCache) Put(_ context.Context, name string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Demos[name] = e
	return nil
}

// Len returns the number of cached entries.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.doc.Demos)
}

// Save writes the document atomically.
func (c *FileCache) Save(_ context.Context) error {
	c.mu.Lock()
	raw, err := json.Marshal(c.doc)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".demodata-*")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace cache %s: %w", c.path, err)
	}
	return nil
}
