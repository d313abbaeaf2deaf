// Package cache stores per-file analysis results on disk, keyed by path and
// thresholds and validated against a content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/refract-sh/refract/pkg/models"
)

// Cache is a file-backed result cache. A disabled cache is a valid value
// whose operations are no-ops.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached file result.
type Entry struct {
	Hash      string            `json:"hash"` // content hash of the analyzed file
	Timestamp time.Time         `json:"timestamp"`
	Result    models.FileResult `json:"result"`
}

// New creates a cache rooted at dir.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Key derives the cache key for a file analyzed under the given thresholds;
// changing a limit invalidates all entries at once.
func Key(path string, t models.Thresholds) string {
	return fmt.Sprintf("%s|cyclo=%d|cog=%d|nest=%d|lines=%d",
		path, t.Cyclomatic, t.Cognitive, t.Nesting, t.Lines)
}

// Get retrieves a cached result when the content hash matches and the entry
// has not expired.
func (c *Cache) Get(key, hash string) (models.FileResult, bool) {
	if !c.enabled {
		return models.FileResult{}, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FileResult{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.FileResult{}, false
	}
	if entry.Hash != hash {
		return models.FileResult{}, false
	}
	if time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return models.FileResult{}, false
	}

	return entry.Result, true
}

// Set stores a file result under key.
func (c *Cache) Set(key, hash string, result models.FileResult) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(Entry{
		Hash:      hash,
		Timestamp: time.Now(),
		Result:    result,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(key), data, 0600)
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path. xxhash keeps the filename
// short and free of separator characters.
func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x.json", xxhash.Sum64String(key)))
}
