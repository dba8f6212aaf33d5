/*
Package cache is a small TTL key/value cache for derived read data.

PURPOSE:
  Holds JSON-encoded derived views (the full tank status map, master
  lists, price tables) so read-heavy screens don't rescan sheets. The
  mutation path explicitly removes the status-map key after a commit;
  everything else just expires. There is deliberately no strict
  consistency here - stale master lists are acceptable, stale tank
  state is not, which is why that one key is invalidated by hand.

KEYS IN USE:
  cache.KeyTankStatusMap   full canonical-id -> {status, location} map
  cache.KeyPriceMaster     commission price table
  cache.KeyRepairOptions   repair work items
  "list_cache_<sheet>"     generic master list caches
*/
package cache

import (
	"sync"
	"time"
)

// Well-known keys. Invalidation after a status mutation targets
// KeyTankStatusMap only; the rest ride out their TTL.
const (
	KeyTankStatusMap = "ALL_TANK_STATUS_MAP"
	KeyPriceMaster   = "price_master_data"
	KeyRepairOptions = "repair_options"
	KeyTankPrefixes  = "TANK_PREFIXES"
)

// ListKey names the cache slot for a master-list sheet.
func ListKey(sheetName string) string {
	return "list_cache_" + sheetName
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a mutex-guarded string cache with per-entry TTL and lazy
// expiry. Zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// NewWithClock is for tests that need to control expiry.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]entry), now: now}
}

// Get returns the cached value and whether it was present and fresh.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Put stores value under key for ttl.
func (c *Cache) Put(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Remove drops a single key.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RemoveAll drops the given keys. Used by the "refresh masters" action.
func (c *Cache) RemoveAll(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}
