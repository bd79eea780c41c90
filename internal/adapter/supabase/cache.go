package supabase

import (
	"container/list"
	"context"
	"sync"

	"github.com/plazafinder/mall-radar/internal/observability"
	"github.com/plazafinder/mall-radar/internal/session"
)

// CachedResolver wraps a session resolver with an in-memory LRU cache keyed
// by the exact access token, so repeated requests from the same client skip
// the auth round-trip. Expired tokens stop arriving and age out of the LRU;
// failed resolutions are never cached.
type CachedResolver struct {
	inner   session.Resolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner session.Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, accessToken string) (session.Session, error) {
	if s, ok := c.cache.get(accessToken); ok {
		c.metrics.SessionCache.WithLabelValues("hit").Inc()
		return s, nil
	}
	c.metrics.SessionCache.WithLabelValues("miss").Inc()

	s, err := c.inner.Resolve(ctx, accessToken)
	if err != nil {
		return s, err
	}
	c.cache.put(accessToken, s)
	return s, nil
}

// lruCache is a thread-safe LRU of resolved sessions: a map for lookup,
// a container/list for recency order (front = most recently used).
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key   string
	value session.Session
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return session.Session{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.entries, oldest.Value.(*entry).key)
			c.order.Remove(oldest)
		}
	}
}
