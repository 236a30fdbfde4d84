// Package cache implements the persistent header-symbol cache described in
// spec §6: a `.cnx/` directory under the project root holding per-header
// content-hashed snapshots (symbols, struct fields, struct-keyword flags,
// enum widths). Keys are xxhash64 of the header's raw bytes, not a
// cryptographic hash, since the cache only needs collision resistance
// against accidental reuse, not adversarial input (grounded on the
// teacher's metrics cache, which made the same tradeoff with SHA-256
// truncated to 16 bytes).
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the restoration payload for one header's collected symbols,
// opaque to the cache itself; C3 owns its shape.
type Snapshot struct {
	HeaderPath  string          `json:"headerPath"`
	ContentHash string          `json:"contentHash"`
	CachedAt    time.Time       `json:"cachedAt"`
	Payload     json.RawMessage `json:"payload"`
}

// HeaderCache is a two-tier cache: a hot in-memory sync.Map and a `.cnx/`
// on-disk tier that survives process restarts. Disk entries never expire
// on their own, since a content hash uniquely names its bytes; staleness
// is handled by the cache key changing when the header's content changes,
// not by TTL eviction.
type HeaderCache struct {
	dir  string
	hot  sync.Map // map[string]*Snapshot
	hits int64
	miss int64
}

// NewHeaderCache opens (creating if absent) a header cache rooted at
// filepath.Join(projectRoot, ".cnx"). dir may be empty, in which case the
// cache operates purely in memory for the lifetime of the process; the
// pipeline driver does this when project-root detection fails (spec §6
// "If none is found, caching is disabled" refers to persistence, not the
// in-process memo).
func NewHeaderCache(dir string) (*HeaderCache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &HeaderCache{dir: dir}, nil
}

// ContentHash returns the cache key for header content: a base-16 xxhash64,
// the same fast-hash strategy the indexer's content store uses for
// equality checks rather than identity-grade hashing.
func ContentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func (c *HeaderCache) diskPath(hash string) string {
	if c.dir == "" || len(hash) < 2 {
		return ""
	}
	return filepath.Join(c.dir, hash[:2], hash+".json")
}

// Get looks up a snapshot by content hash, checking the in-memory tier
// before falling back to disk.
func (c *HeaderCache) Get(hash string) (*Snapshot, bool) {
	if v, ok := c.hot.Load(hash); ok {
		atomic.AddInt64(&c.hits, 1)
		return v.(*Snapshot), true
	}

	path := c.diskPath(hash)
	if path == "" {
		atomic.AddInt64(&c.miss, 1)
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		atomic.AddInt64(&c.miss, 1)
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		atomic.AddInt64(&c.miss, 1)
		return nil, false
	}
	c.hot.Store(hash, &snap)
	atomic.AddInt64(&c.hits, 1)
	return &snap, true
}

// Put stores a snapshot in both tiers. Disk writes go through a temp file
// and rename so a crash mid-write never leaves a corrupt cache entry for a
// later run to trip over.
func (c *HeaderCache) Put(headerPath, hash string, payload json.RawMessage) error {
	snap := &Snapshot{HeaderPath: headerPath, ContentHash: hash, CachedAt: time.Now(), Payload: payload}
	c.hot.Store(hash, snap)

	path := c.diskPath(hash)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Stats reports hit/miss counters for diagnostic output (debug.LogCache).
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

func (c *HeaderCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	miss := atomic.LoadInt64(&c.miss)
	total := hits + miss
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: miss, HitRate: rate}
}

// Clear empties the in-memory tier. The on-disk tier is left intact; a
// full wipe is a `noCache` run followed by deleting the `.cnx/` directory
// by hand, not something the library does implicitly.
func (c *HeaderCache) Clear() {
	c.hot.Range(func(k, _ interface{}) bool {
		c.hot.Delete(k)
		return true
	})
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.miss, 0)
}
