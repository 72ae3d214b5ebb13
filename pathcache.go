package subdoc

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultPathCacheSize = 1024

type cachedPath struct {
	text string
	path Path
}

// pathCache memoizes ParsePath. When full, it is dropped wholesale; paths
// are cheap to re-parse and hot ones come back on the next call.
type pathCache struct {
	mu      sync.Mutex
	limit   int
	entries map[uint64]cachedPath
}

func newPathCache(limit int) *pathCache {
	if limit <= 0 {
		limit = defaultPathCacheSize
	}
	return &pathCache{limit: limit, entries: make(map[uint64]cachedPath, limit)}
}

func (c *pathCache) Parse(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	h := xxhash.Sum64String(s)

	c.mu.Lock()
	e, found := c.entries[h]
	c.mu.Unlock()
	if found && e.text == s {
		return e.path, nil
	}

	p, err := ParsePath(s)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.limit {
		clear(c.entries)
	}
	c.entries[h] = cachedPath{s, p}
	c.mu.Unlock()
	return p, nil
}

func (c *pathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
