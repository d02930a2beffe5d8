package aggregator

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
)

const collectionsKey = "collections"

// Snapshot is one complete collections listing with its capture time.
// Snapshots are stored and served whole so readers never observe a
// half-refreshed listing.
type Snapshot struct {
	Collections []catalog.Collection
	TakenAt     time.Time
}

// collectionsCache holds the aggregate collections snapshot with TTL
// expiry. go-cache handles expiration and concurrent access; invalidation
// on registry or auth changes goes through Clear.
type collectionsCache struct {
	store *gocache.Cache
}

func newCollectionsCache(ttl, cleanup time.Duration) *collectionsCache {
	return &collectionsCache{
		store: gocache.New(ttl, cleanup),
	}
}

// Get returns the cached snapshot when one younger than the TTL exists.
func (c *collectionsCache) Get() (*Snapshot, bool) {
	v, ok := c.store.Get(collectionsKey)
	if !ok {
		return nil, false
	}
	snap, ok := v.(*Snapshot)
	return snap, ok
}

// Set stores a fresh snapshot, restarting the TTL clock.
func (c *collectionsCache) Set(snap *Snapshot) {
	c.store.Set(collectionsKey, snap, gocache.DefaultExpiration)
}

// Clear drops the snapshot immediately.
func (c *collectionsCache) Clear() {
	c.store.Flush()
}
