package pattern

import (
	"regexp"
	"sync"
	"time"
)

// DefaultTTL is how long a loaded repertoire stays fresh before the
// store re-reads it from disk.
const DefaultTTL = 5 * time.Minute

// Cache holds a loaded repertoire with a TTL and the compiled regexes
// for its patterns. A single shared instance backs every store by
// default so repeated scans in one process reuse compiled state;
// callers that need isolation construct their own with NewCache.
type Cache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	repertoire *Repertoire
	loadedAt   time.Time
	regexps    map[string]*regexp.Regexp
}

var shared = NewCache(DefaultTTL)

// SharedCache returns the process-wide cache handle.
func SharedCache() *Cache {
	return shared
}

// NewCache creates an independent cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		regexps: make(map[string]*regexp.Regexp),
	}
}

// Repertoire returns the cached repertoire, or nil if none is cached
// or the TTL has elapsed.
func (c *Cache) Repertoire() *Repertoire {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.repertoire == nil || time.Since(c.loadedAt) > c.ttl {
		return nil
	}
	return c.repertoire
}

// StoreRepertoire caches a freshly loaded repertoire.
func (c *Cache) StoreRepertoire(r *Repertoire) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repertoire = r
	c.loadedAt = time.Now()
}

// Regexp returns the compiled form of a regex source, compiling and
// caching it on first use. Compilation failures are not cached.
func (c *Cache) Regexp(source string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.regexps[source]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.regexps[source] = re
	c.mu.Unlock()
	return re, nil
}

// Clear drops the cached repertoire and all compiled regexes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repertoire = nil
	c.loadedAt = time.Time{}
	c.regexps = make(map[string]*regexp.Regexp)
}
