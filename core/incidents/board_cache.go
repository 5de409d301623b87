package incidents

import (
	"sync"
	"time"

	"status-service/core/store"

	"github.com/jellydator/ttlcache/v3"
)

const boardCacheCapacity = 128

// boardCache holds latest-per-service results keyed by the start_date filter.
// A create bumps the generation; a result read under an older generation is
// returned but never stored.
type boardCache struct {
	mu    sync.Mutex
	gen   uint64
	items *ttlcache.Cache[string, []store.Incident]
}

func newBoardCache(ttl time.Duration) *boardCache {
	if ttl <= 0 {
		return nil
	}
	return &boardCache{
		items: ttlcache.New(
			ttlcache.WithTTL[string, []store.Incident](ttl),
			ttlcache.WithCapacity[string, []store.Incident](boardCacheCapacity),
			ttlcache.WithDisableTouchOnHit[string, []store.Incident](),
		),
	}
}

func boardKey(since *time.Time) string {
	if since == nil {
		return "*"
	}
	return since.UTC().Format(time.RFC3339Nano)
}

func (b *boardCache) load(since *time.Time, fetch func() ([]store.Incident, error)) ([]store.Incident, error) {
	if b == nil {
		return fetch()
	}
	key := boardKey(since)
	if item := b.items.Get(key); item != nil {
		return item.Value(), nil
	}
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()

	rows, err := fetch()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	if b.gen == gen {
		b.items.Set(key, rows, ttlcache.DefaultTTL)
	}
	b.mu.Unlock()
	return rows, nil
}

func (b *boardCache) invalidate() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.gen++
	b.items.DeleteAll()
	b.mu.Unlock()
}

func (b *boardCache) len() int {
	if b == nil {
		return 0
	}
	return b.items.Len()
}
