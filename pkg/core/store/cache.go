package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"edinet_qa/pkg/core/metrics"
)

// Lookup results reported to metrics.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultStale   = "stale"
	ResultCorrupt = "corrupt"
)

// FileCache is a content-addressed JSON cache on disk. Entries live at
// <root>/<namespace>/<sha256 of sorted params>.json and are fresh while their
// modification time is within the TTL. Entries are never deleted, only
// treated as stale. Writes go through a temp file and rename, so concurrent
// writers of one key leave equivalent content and readers never see a
// partial file.
type FileCache struct {
	root    string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewFileCache creates a cache rooted at dir. TTL below one hour is raised to one hour.
func NewFileCache(dir string, ttlHours int, m *metrics.Metrics) *FileCache {
	if ttlHours < 1 {
		ttlHours = 1
	}
	return &FileCache{
		root:    dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		now:     time.Now,
		metrics: m,
	}
}

// Root returns the cache directory.
func (c *FileCache) Root() string { return c.root }

// TTL returns the freshness window.
func (c *FileCache) TTL() time.Duration { return c.ttl }

// Fingerprint derives the file name for a parameter set. Keys are sorted so
// map iteration order never changes the key.
func Fingerprint(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Path returns the file backing a key.
func (c *FileCache) Path(namespace string, params map[string]string) string {
	return filepath.Join(c.root, namespace, Fingerprint(params)+".json")
}

// Get decodes a fresh entry into out. Missing, stale and undecodable entries
// all report false.
func (c *FileCache) Get(namespace string, params map[string]string, out any) bool {
	path := c.Path(namespace, params)
	if !c.IsFresh(path) {
		if _, err := os.Stat(path); err == nil {
			c.metrics.ObserveCache(namespace, ResultStale)
		} else {
			c.metrics.ObserveCache(namespace, ResultMiss)
		}
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.metrics.ObserveCache(namespace, ResultMiss)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.metrics.ObserveCache(namespace, ResultCorrupt)
		return false
	}
	c.metrics.ObserveCache(namespace, ResultHit)
	return true
}

// Set stores v under the key.
func (c *FileCache) Set(namespace string, params map[string]string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache %s: marshal: %w", namespace, err)
	}
	return WriteFileAtomic(c.Path(namespace, params), data)
}

// IsFresh reports whether path exists and was modified within the TTL.
func (c *FileCache) IsFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return c.now().Sub(info.ModTime()) <= c.ttl
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
