// Package identity maps player ids to display names.
package identity

import (
	"context"
	"time"

	"github.com/Veraticus/treasury/internal/service"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// StaticResolver resolves names from a fixed table, typically the names map in
// the configuration file.
type StaticResolver map[uuid.UUID]string

// ResolveDisplayName implements service.NameResolver.
func (r StaticResolver) ResolveDisplayName(_ context.Context, id uuid.UUID) (string, bool) {
	name, ok := r[id]
	return name, ok && name != ""
}

// ParseNames builds a StaticResolver from string keys, returning the keys
// that are not valid ids.
func ParseNames(raw map[string]string) (StaticResolver, []string) {
	names := make(StaticResolver, len(raw))
	var invalid []string
	for key, name := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		names[id] = name
	}
	return names, invalid
}

// CachingResolver remembers successful lookups of another resolver for a TTL.
// Misses are not cached, so a player who sets a name later is picked up.
type CachingResolver struct {
	next  service.NameResolver
	cache *cache.Cache
}

// NewCachingResolver wraps next with a TTL cache.
func NewCachingResolver(next service.NameResolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachingResolver{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// ResolveDisplayName implements service.NameResolver.
func (r *CachingResolver) ResolveDisplayName(ctx context.Context, id uuid.UUID) (string, bool) {
	key := id.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), true
	}

	name, ok := r.next.ResolveDisplayName(ctx, id)
	if !ok {
		return "", false
	}
	r.cache.SetDefault(key, name)
	return name, true
}

// Forget drops a cached name.
func (r *CachingResolver) Forget(id uuid.UUID) {
	r.cache.Delete(id.String())
}
