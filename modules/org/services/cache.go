package services

import (
	"context"
	"sync"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

type nameCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newNameCache() *nameCache {
	return &nameCache{entries: make(map[string]string)}
}

func nameCacheKey(kind hierarchy.Kind, id string) string {
	return string(kind) + "/" + id
}

func (c *nameCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *nameCache) Set(key, value string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *nameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachingResolver memoizes successful name resolutions for the lifetime of
// the resolver. Errors are never cached.
type CachingResolver struct {
	next  NameResolver
	cache *nameCache
}

func NewCachingResolver(next NameResolver) *CachingResolver {
	return &CachingResolver{next: next, cache: newNameCache()}
}

func (r *CachingResolver) ResolveName(ctx context.Context, kind hierarchy.Kind, id string) (string, error) {
	key := nameCacheKey(kind, id)
	if name, ok := r.cache.Get(key); ok {
		recordNameCacheRequest(true)
		return name, nil
	}
	recordNameCacheRequest(false)

	name, err := r.next.ResolveName(ctx, kind, id)
	if err != nil {
		return "", err
	}
	r.cache.Set(key, name)
	return name, nil
}
