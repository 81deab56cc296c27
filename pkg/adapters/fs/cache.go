package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/nbform/pkg/core"
)

const indexVersion = 1

// indexEntry is the cached summary of one notebook file.
type indexEntry struct {
	ID           string    `json:"id"`
	Cells        int       `json:"cells"`
	Language     string    `json:"language,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

func newIndexEntry(id string, nb *core.Notebook, mtime time.Time) *indexEntry {
	s := core.SummaryOf(id, nb)
	return &indexEntry{
		ID:           id,
		Cells:        s.Cells,
		Language:     s.Language,
		LastModified: mtime,
	}
}

func (e *indexEntry) summary() core.Summary {
	return core.Summary{
		ID:           e.ID,
		Cells:        e.Cells,
		Language:     e.Language,
		LastModified: e.LastModified,
	}
}

// index is the persistent form of the cache.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // keyed by relative path, e.g. "reports/q1.ipynb"
}

// cache keeps notebook summaries in {root}/{systemDir}/index.json.
type cache struct {
	Path string

	mu    sync.RWMutex
	index index
	dirty bool
}

func newCache(root, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(root, systemDir, "index.json"),
		index: index{
			Version: indexVersion,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the index from disk. A missing, corrupt or outdated index
// starts empty.
func (c *cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var loaded index
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Version != indexVersion || loaded.Entries == nil {
		c.index.Entries = make(map[string]*indexEntry)
		c.dirty = true
		return nil
	}

	// Entries set since the last save win over the disk copy.
	for k, v := range c.index.Entries {
		loaded.Entries[k] = v
	}
	c.index = loaded
	return nil
}

// Save persists the index if it changed.
func (c *cache) Save() error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(c.Path, data, 0644); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Get returns the entry for relPath if it was recorded for the same mtime.
func (c *cache) Get(relPath string, mtime time.Time) (*indexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) {
		return nil, false
	}
	return entry, true
}

func (c *cache) Set(relPath string, entry *indexEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index.Entries[relPath] = entry
	c.dirty = true
}

func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.dirty = true
	}
}

// Prune drops entries whose files were not seen.
func (c *cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path := range c.index.Entries {
		if !keep[path] {
			delete(c.index.Entries, path)
			c.dirty = true
		}
	}
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index.Entries)
}
