package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"placement-optimizer/internal/model"
)

type cacheEntry struct {
	result    *model.AllocationResult
	expiresAt time.Time
}

// ResultCache keeps allocation results for repeated identical requests. The
// owner creates it and passes it where it is needed; entries must be
// invalidated when the catalog they were solved against changes.
type ResultCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{store: map[string]cacheEntry{}, ttl: ttl, now: time.Now}
}

// Get returns a cached result if present and not expired. A nil cache never hits.
func (c *ResultCache) Get(key string) (*model.AllocationResult, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (c *ResultCache) Set(key string, res *model.AllocationResult) {
	if c == nil || res == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheEntry{result: res, expiresAt: c.now().Add(c.ttl)}
}

func (c *ResultCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Clear drops every entry, e.g. after the catalog is reloaded.
func (c *ResultCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = map[string]cacheEntry{}
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Sweep removes expired entries and reports how many were dropped.
func (c *ResultCache) Sweep() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
			n++
		}
	}
	return n
}

// Run sweeps expired entries every interval until ctx is done.
func (c *ResultCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// CacheKey hashes the variant name together with the JSON encoding of the
// request and any extra parameters (threshold, targets).
func CacheKey(variant string, req model.AllocationRequest, extra ...any) string {
	payload, err := json.Marshal(struct {
		Variant string                  `json:"variant"`
		Request model.AllocationRequest `json:"request"`
		Extra   []any                   `json:"extra,omitempty"`
	}{variant, req, extra})
	if err != nil {
		// Only unencodable extras (NaN thresholds) get here; they never hit.
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
