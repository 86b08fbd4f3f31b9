package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// DefaultCacheSize bounds the in-memory embedding cache. Filter topics are a
// small, mostly static set, so a modest cap is enough to avoid re-encoding.
const DefaultCacheSize = 1024

// Cache is a bounded in-memory embedding cache with FIFO eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]float32
	order   []string
	maxSize int
}

// NewCache creates a cache holding at most maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	return &Cache{
		entries: make(map[string][]float32, maxSize),
		maxSize: maxSize,
	}
}

// Get returns the cached vector for text, if any.
func (c *Cache) Get(text string) ([]float32, bool) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.entries[key]

	return vec, ok
}

// Put stores a vector, evicting the oldest entry when full.
func (c *Cache) Put(text string, vec []float32) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = vec

		return
	}

	if len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = vec
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

// CachingEncoder wraps an Encoder with a bounded cache.
type CachingEncoder struct {
	inner Encoder
	cache *Cache
}

// NewCachingEncoder wraps inner with cache. A nil cache gets a default one.
func NewCachingEncoder(inner Encoder, cache *Cache) *CachingEncoder {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}

	return &CachingEncoder{inner: inner, cache: cache}
}

// Encode returns a cached vector when available, otherwise delegates to the
// wrapped encoder and caches the result. Errors are never cached.
func (e *CachingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Put(text, vec)

	return vec, nil
}
