package entitystore

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/exp/maps"
)

// EntityCache is the process-lifetime map from GUID to loaded Entity. Loads
// populate it, updates refresh it, deletes and enable/disable flips evict.
// The cache is never shared across processes, so no cross-process
// invalidation exists; consistency with the backing store is
// read-your-writes within one process only.
type EntityCache struct {
	c *gocache.Cache
}

// NewEntityCache creates an empty cache with no expiration.
func NewEntityCache() *EntityCache {
	return &EntityCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func cacheKey(guid int64) string {
	return strconv.FormatInt(guid, 10)
}

// Get returns the cached instance for guid, if present.
func (ec *EntityCache) Get(guid int64) (*Entity, bool) {
	v, ok := ec.c.Get(cacheKey(guid))
	if !ok {
		return nil, false
	}
	return v.(*Entity), true
}

// Set stores e under its GUID, replacing any prior instance.
func (ec *EntityCache) Set(e *Entity) {
	ec.c.Set(cacheKey(e.GUID), e, gocache.NoExpiration)
}

// Remove evicts guid.
func (ec *EntityCache) Remove(guid int64) {
	ec.c.Delete(cacheKey(guid))
}

// Flush evicts everything.
func (ec *EntityCache) Flush() {
	ec.c.Flush()
}

// Len returns the number of cached entities.
func (ec *EntityCache) Len() int {
	return ec.c.ItemCount()
}

// Keys returns the cached GUID keys, for introspection endpoints and tests.
func (ec *EntityCache) Keys() []string {
	return maps.Keys(ec.c.Items())
}
