package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NewMemory returns an in-process cache used when Redis is not configured.
// Expired entries are purged at twice the default TTL.
func NewMemory(defaultTTL time.Duration) *gocache.Cache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return gocache.New(defaultTTL, 2*defaultTTL)
}
