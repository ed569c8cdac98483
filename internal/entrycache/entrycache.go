// Package entrycache provides a bounded, per-log cache of recently read
// entry payloads keyed by position. It is backed by littlecache and fails
// open: a cache miss (or a disabled cache) simply means the caller falls
// back to the log view.
package entrycache

import (
	"encoding/binary"

	"github.com/l00pss/littlecache"

	"github.com/rzbill/mledger/internal/position"
)

// Cache wraps a littlecache instance keyed by encoded position. A nil *Cache
// (or one constructed with MaxBytes == 0) is always a miss, which is how the
// "size=0 disables the cache" requirement is satisfied without a branch at
// every call site.
type Cache struct {
	inner littlecache.LittleCache
}

// Options configures a Cache.
type Options struct {
	// MaxBytes bounds the cache's total resident payload size. Zero disables
	// the cache entirely.
	MaxBytes int64
}

// New builds a Cache per opts. When opts.MaxBytes <= 0, New returns a Cache
// with no backing store; all subsequent Get calls miss and Put is a no-op.
func New(opts Options) (*Cache, error) {
	if opts.MaxBytes <= 0 {
		return &Cache{}, nil
	}
	cfg := littlecache.DefaultConfig()
	cfg.MaxSize = int(opts.MaxBytes)
	cfg.EvictionPolicy = littlecache.LRU
	inner, err := littlecache.NewLittleCache(cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// key encodes a position as a fixed 16-byte big-endian key.
func key(p position.Position) string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], p.Segment)
	binary.BigEndian.PutUint64(b[8:16], uint64(p.Entry))
	return string(b[:])
}

// Get returns the cached payload for p, if present.
func (c *Cache) Get(p position.Position) ([]byte, bool) {
	if c == nil || c.inner == nil {
		return nil, false
	}
	v, ok := c.inner.Get(key(p))
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Put stores payload under p. It is a no-op on a disabled cache.
func (c *Cache) Put(p position.Position, payload []byte) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Set(key(p), payload)
}

// Invalidate removes p from the cache, if present. Used when a segment's
// entries are trimmed so stale payloads are not served after deletion.
func (c *Cache) Invalidate(p position.Position) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Delete(key(p))
}

// Enabled reports whether the cache has a backing store.
func (c *Cache) Enabled() bool {
	return c != nil && c.inner != nil
}
