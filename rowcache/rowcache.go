// Package rowcache provides a small read-through cache for decoded table
// rows, keyed by primary key. It only ever shortcuts reads; the data file
// stays the source of truth and the owning table invalidates entries on
// every mutation.
package rowcache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

type Cache struct {
	c *ristretto.Cache[int, []string]
}

// New builds a cache sized for roughly maxRows decoded rows.
func New(maxRows int64) (*Cache, error) {
	if maxRows <= 0 {
		maxRows = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[int, []string]{
		NumCounters: maxRows * 10,
		MaxCost:     maxRows,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create row cache: %v", err)
	}
	return &Cache{c: c}, nil
}

// Get returns a copy of the cached row for pk, if present.
func (rc *Cache) Get(pk int) ([]string, bool) {
	values, ok := rc.c.Get(pk)
	if !ok {
		return nil, false
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, true
}

// Put stores a copy of values under pk. Admission is best effort.
func (rc *Cache) Put(pk int, values []string) {
	stored := make([]string, len(values))
	copy(stored, values)
	rc.c.Set(pk, stored, 1)
}

// Invalidate drops the entry for pk.
func (rc *Cache) Invalidate(pk int) {
	rc.c.Del(pk)
}

// Reset drops every entry. Used after compaction and rollback, where the
// whole file changes underneath the cache.
func (rc *Cache) Reset() {
	rc.c.Clear()
}

func (rc *Cache) Close() {
	rc.c.Close()
}
