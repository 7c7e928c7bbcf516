// Package cache stores per-file scan results on disk, keyed by the file path, its content and
// the configuration subset that affects rule evaluation.
//
// Entries live at <dir>/<key[:2]>/<key>.json. The cache is advisory: every I/O failure is
// counted and treated as a miss or a no-op, never returned to the caller.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/support"
)

const (
	DefaultMaxAge  = 7 * 24 * time.Hour
	DefaultMaxSize = 100 << 20

	// cleanupEvery is the number of writes between automatic cleanups.
	cleanupEvery = 50
)

type Options struct {
	Enabled bool
	Dir     string
	MaxAge  time.Duration
	MaxSize int64
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

type Data struct {
	Issues []model.Issue `json:"issues"`
	Score  int           `json:"score"`
}

type Metadata struct {
	Size int64  `json:"size"`
	File string `json:"file"`
}

// Entry is the on-disk document. Timestamp is in unix milliseconds.
type Entry struct {
	Data      Data     `json:"data"`
	Timestamp int64    `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
}

type Stats struct {
	Enabled bool    `json:"enabled"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	Writes  int     `json:"writes"`
	Errors  int     `json:"errors"`
	HitRate float64 `json:"hitRate"`
}

type CleanupResult struct {
	Expired int   `json:"expired"`
	Evicted int   `json:"evicted"`
	Freed   int64 `json:"freed"`
	Entries int   `json:"entries"`
	Size    int64 `json:"size"`
}

type Cache struct {
	mu     sync.Mutex
	opts   Options
	log    *slog.Logger
	stats  Stats
	writes int
}

// New returns a cache for opts and runs an initial cleanup when enabled.
func New(opts Options, log *slog.Logger) *Cache {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Cache{opts: opts, log: logging.OrDiscard(log)}
	c.stats.Enabled = opts.Enabled && opts.Dir != ""
	if c.stats.Enabled {
		c.Cleanup()
	}
	return c
}

func (c *Cache) Enabled() bool {
	return c.stats.Enabled
}

func (c *Cache) Dir() string {
	return c.opts.Dir
}

// ConfigDigest hashes the canonical JSON form of the configuration subset that affects
// rule output. encoding/json sorts map keys, so equal settings give equal digests.
func ConfigDigest(relevant interface{}) string {
	data, err := json.Marshal(relevant)
	if err != nil {
		return support.HashString("unencodable")
	}
	return support.HashBytes(data)
}

// Key is digest(path) + "_" + digest(content) + "_" + configDigest.
func Key(path string, content []byte, configDigest string) string {
	return support.HashString(filepath.ToSlash(path)) + "_" + support.HashBytes(content) + "_" + configDigest
}

func (c *Cache) entryPath(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(c.opts.Dir, prefix, key+".json")
}

// Get returns the cached data for key. Expired and unreadable entries are removed and
// reported as misses.
func (c *Cache) Get(key string) (Data, bool) {
	if !c.Enabled() {
		return Data{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.stats.Errors++
			c.log.Debug("cache read failed", "key", key, "err", err)
		}
		c.stats.Misses++
		return Data{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.stats.Errors++
		c.stats.Misses++
		c.remove(path)
		return Data{}, false
	}
	if c.expired(e) {
		c.stats.Misses++
		c.remove(path)
		return Data{}, false
	}
	c.stats.Hits++
	if e.Data.Issues == nil {
		e.Data.Issues = []model.Issue{}
	}
	return e.Data, true
}

// Set stores data under key. Every cleanupEvery-th write triggers a cleanup.
func (c *Cache) Set(key, file string, size int64, data Data) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	e := Entry{
		Data:      data,
		Timestamp: c.opts.Now().UnixMilli(),
		Metadata:  Metadata{Size: size, File: filepath.ToSlash(file)},
	}
	payload, err := json.Marshal(e)
	if err == nil {
		err = support.WriteFileAtomic(c.entryPath(key), payload)
	}
	if err != nil {
		c.stats.Errors++
		c.log.Debug("cache write failed", "key", key, "err", err)
		c.mu.Unlock()
		return
	}
	c.stats.Writes++
	c.writes++
	due := c.writes%cleanupEvery == 0
	c.mu.Unlock()
	if due {
		c.Cleanup()
	}
}

func (c *Cache) expired(e Entry) bool {
	age := c.opts.Now().UnixMilli() - e.Timestamp
	return age >= c.opts.MaxAge.Milliseconds()
}

func (c *Cache) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.stats.Errors++
	}
}

type onDisk struct {
	path  string
	size  int64
	mtime time.Time
}

// Cleanup deletes expired and unreadable entries, then evicts the least recently written
// entries until the total size is within MaxSize.
func (c *Cache) Cleanup() CleanupResult {
	var res CleanupResult
	if !c.Enabled() {
		return res
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var files []onDisk
	var total int64
	err := filepath.WalkDir(c.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			c.stats.Errors++
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			c.stats.Errors++
			return nil
		}
		raw, err := os.ReadFile(path)
		var e Entry
		if err != nil || json.Unmarshal(raw, &e) != nil || c.expired(e) {
			c.remove(path)
			res.Expired++
			res.Freed += info.Size()
			return nil
		}
		files = append(files, onDisk{path: path, size: info.Size(), mtime: info.ModTime()})
		total += info.Size()
		return nil
	})
	if err != nil {
		c.stats.Errors++
	}

	if total > c.opts.MaxSize {
		sort.SliceStable(files, func(i, j int) bool {
			if files[i].mtime.Equal(files[j].mtime) {
				return files[i].path < files[j].path
			}
			return files[i].mtime.Before(files[j].mtime)
		})
		kept := files[:0]
		for _, f := range files {
			if total <= c.opts.MaxSize {
				kept = append(kept, f)
				continue
			}
			if err := os.Remove(f.path); err != nil {
				c.stats.Errors++
				kept = append(kept, f)
				continue
			}
			total -= f.size
			res.Evicted++
			res.Freed += f.size
		}
		files = kept
	}
	res.Entries = len(files)
	res.Size = total
	if res.Expired > 0 || res.Evicted > 0 {
		c.log.Debug("cache cleanup", "expired", res.Expired, "evicted", res.Evicted, "freed", res.Freed)
	}
	return res
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c.opts.Dir == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.opts.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.opts.Dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRate = float64(s.Hits) / float64(lookups)
	}
	return s
}
