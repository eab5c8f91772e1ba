package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

// MemoryCacheRepository is the in-process counterpart of CacheRepository,
// used when Redis is not configured. Values are stored JSON encoded so
// callers get copies rather than shared pointers.
type MemoryCacheRepository struct {
	store *gocache.Cache
}

// NewMemoryCacheRepository wraps a go-cache store.
func NewMemoryCacheRepository(store *gocache.Cache) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: store}
}

// Get decodes the cached value into dest or returns ErrCacheMiss.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		r.store.Delete(key)
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		r.store.Delete(key)
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under key for ttl. A zero ttl uses the store default.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a Redis style glob.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.store.Delete(key)
		}
	}
	return nil
}

// Close drops every cached entry.
func (r *MemoryCacheRepository) Close() error {
	r.store.Flush()
	return nil
}
