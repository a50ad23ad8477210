package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/seeker/internal/models"
)

// CacheStats reports counters for the result cache. Counters increment once
// per operation; HitRate is hits/(hits+misses)*100 rounded to two decimals,
// or 0 when no lookups have happened.
type CacheStats struct {
	Entries       int     `json:"total_entries"`
	Bytes         int64   `json:"total_size_bytes"`
	SizeMB        float64 `json:"total_size_mb"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Writes        int64   `json:"writes"`
	BatchWrites   int64   `json:"batch_writes"`
	Invalidations int64   `json:"invalidations"`
	Clears        int64   `json:"clears"`
	HitRate       float64 `json:"hit_rate"`
}

// CacheSizeReport is the outcome of a size check, optionally after eviction.
type CacheSizeReport struct {
	CurrentSizeMB float64 `json:"current_size_mb"`
	MaxSizeMB     float64 `json:"max_size_mb"`
	UsagePercent  float64 `json:"usage_percent"`
	Status        string  `json:"status"`
	Evicted       int     `json:"evicted,omitempty"`
}

// ResultCache maps (url, query) to a cached search outcome with TTL.
// The cache is advisory: implementations degrade failures to misses and
// callers must never depend on a hit.
type ResultCache interface {
	// Get returns the cached entry for (url, query), or nil on a miss.
	// A non-nil entry with a nil Result is a cached "no match" outcome.
	Get(ctx context.Context, url, query string) (*models.CacheEntry, error)

	// Put stores an outcome for (url, query) with the default TTL.
	// A nil result caches the "no match" outcome.
	Put(ctx context.Context, url, query string, result *models.SearchResult) error

	// GetMany looks up entries for several URLs in one batched round trip.
	// URLs that missed are omitted from the returned map.
	GetMany(ctx context.Context, urls []string, query string) (map[string]*models.CacheEntry, error)

	// PutMany stores several outcomes in one batched round trip.
	PutMany(ctx context.Context, results map[string]*models.SearchResult, query string) error

	// Invalidate removes the entry for (url, query).
	Invalidate(ctx context.Context, url, query string) error

	// ClearAll removes every entry in the cache namespace.
	ClearAll(ctx context.Context) error

	// SetTTL replaces the residual TTL for (url, query).
	SetTTL(ctx context.Context, url, query string, ttl time.Duration) error

	// GetTTL returns the residual TTL for (url, query).
	GetTTL(ctx context.Context, url, query string) (time.Duration, error)

	// CleanupExpired sweeps the namespace and deletes entries whose
	// residual TTL is non-positive. Returns the number deleted.
	CleanupExpired(ctx context.Context) (int, error)

	// Stats returns cache counters and current usage.
	Stats(ctx context.Context) CacheStats

	// MonitorSize reports usage against limitMB and, when over the limit,
	// evicts entries in ascending residual-TTL order until under it.
	MonitorSize(ctx context.Context, limitMB float64) (CacheSizeReport, error)
}
