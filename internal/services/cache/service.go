// Package cache stores per-URL search outcomes keyed by (url, query) so a
// repeated search serves pages it has already evaluated without refetching.
// A cached entry with a nil result is a legitimate outcome: the page was
// evaluated and did not match.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
)

const keyPrefix = "search_cache:"

// Service implements ResultCache over a KeyValueStore. Storage failures on
// reads degrade to cache misses so a broken store never fails a search.
type Service struct {
	store  interfaces.KeyValueStore
	logger arbor.ILogger
	ttl    atomic.Int64 // nanoseconds

	hits          atomic.Int64
	misses        atomic.Int64
	writes        atomic.Int64
	batchWrites   atomic.Int64
	invalidations atomic.Int64
	clears        atomic.Int64
}

// NewService creates a result cache with the given default TTL.
func NewService(store interfaces.KeyValueStore, ttl time.Duration, logger arbor.ILogger) *Service {
	s := &Service{
		store:  store,
		logger: logger,
	}
	s.ttl.Store(int64(ttl))
	return s
}

// CacheKey builds the storage key for one (url, query) evaluation.
func CacheKey(url, query string) string {
	return keyPrefix + url + ":" + query
}

// DefaultTTL returns the TTL currently applied to new entries.
func (s *Service) DefaultTTL() time.Duration {
	return time.Duration(s.ttl.Load())
}

// Get returns the cached evaluation for (url, query), or nil on a miss.
// Read failures are logged and degrade to a miss.
func (s *Service) Get(ctx context.Context, url, query string) (*models.CacheEntry, error) {
	raw, err := s.store.Get(ctx, CacheKey(url, query))
	if err != nil {
		if err != interfaces.ErrKeyNotFound {
			s.logger.Warn().Err(err).Str("url", url).Msg("Cache read failed, treating as miss")
		}
		s.misses.Add(1)
		return nil, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Corrupt cache entry, treating as miss")
		s.misses.Add(1)
		return nil, nil
	}

	s.hits.Add(1)
	return &entry, nil
}

// Put stores one evaluation outcome. A nil result records that the page was
// evaluated and did not match.
func (s *Service) Put(ctx context.Context, url, query string, result *models.SearchResult) error {
	raw, err := json.Marshal(models.CacheEntry{Result: result})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.store.SetEx(ctx, CacheKey(url, query), raw, s.DefaultTTL()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	s.writes.Add(1)
	return nil
}

// GetMany returns cached evaluations for a set of URLs under one query,
// keyed by URL. Absent and unreadable entries are omitted.
func (s *Service) GetMany(ctx context.Context, urls []string, query string) (map[string]*models.CacheEntry, error) {
	keys := make([]string, len(urls))
	keyToURL := make(map[string]string, len(urls))
	for i, u := range urls {
		k := CacheKey(u, query)
		keys[i] = k
		keyToURL[k] = u
	}

	raw, err := s.store.GetMany(ctx, keys)
	if err != nil {
		s.logger.Warn().Err(err).Int("urls", len(urls)).Msg("Batch cache read failed, treating all as misses")
		s.misses.Add(int64(len(urls)))
		return map[string]*models.CacheEntry{}, nil
	}

	entries := make(map[string]*models.CacheEntry, len(raw))
	for key, value := range raw {
		var entry models.CacheEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Corrupt cache entry in batch, skipping")
			continue
		}
		entries[keyToURL[key]] = &entry
	}

	s.hits.Add(int64(len(entries)))
	s.misses.Add(int64(len(urls) - len(entries)))
	return entries, nil
}

// PutMany stores a batch of evaluations for one query in a single write
// batch.
func (s *Service) PutMany(ctx context.Context, results map[string]*models.SearchResult, query string) error {
	values := make(map[string][]byte, len(results))
	for url, result := range results {
		raw, err := json.Marshal(models.CacheEntry{Result: result})
		if err != nil {
			return fmt.Errorf("failed to encode cache entry for %s: %w", url, err)
		}
		values[CacheKey(url, query)] = raw
	}
	if err := s.store.SetManyEx(ctx, values, s.DefaultTTL()); err != nil {
		return fmt.Errorf("failed to write cache batch: %w", err)
	}
	s.batchWrites.Add(1)
	s.writes.Add(int64(len(values)))
	return nil
}

// Invalidate removes one cached evaluation.
func (s *Service) Invalidate(ctx context.Context, url, query string) error {
	if err := s.store.Delete(ctx, CacheKey(url, query)); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	s.invalidations.Add(1)
	return nil
}

// ClearAll removes every cache entry.
func (s *Service) ClearAll(ctx context.Context) error {
	keys, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Failed to delete cache entry during clear")
			continue
		}
		removed++
	}

	s.clears.Add(1)
	s.logger.Info().Int("removed", removed).Msg("Cache cleared")
	return nil
}

// SetTTL replaces the residual TTL of one cached entry.
func (s *Service) SetTTL(ctx context.Context, url, query string, ttl time.Duration) error {
	if err := s.store.Expire(ctx, CacheKey(url, query), ttl); err != nil {
		if err == interfaces.ErrKeyNotFound {
			return err
		}
		return fmt.Errorf("failed to reset TTL: %w", err)
	}
	return nil
}

// GetTTL returns the residual TTL of one cached entry.
func (s *Service) GetTTL(ctx context.Context, url, query string) (time.Duration, error) {
	ttl, err := s.store.TTL(ctx, CacheKey(url, query))
	if err != nil {
		if err == interfaces.ErrKeyNotFound {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read TTL: %w", err)
	}
	return ttl, nil
}

// CleanupExpired sweeps the namespace and deletes entries whose residual
// TTL has run out. Badger drops expired entries lazily; the sweep forces
// them out eagerly so stats and size checks see live entries only.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		ttl, err := s.store.TTL(ctx, key)
		if err == interfaces.ErrKeyNotFound {
			removed++
			continue
		}
		if err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Failed to read TTL during cleanup")
			continue
		}
		if ttl == 0 {
			if err := s.store.Delete(ctx, key); err != nil {
				s.logger.Warn().Str("key", key).Err(err).Msg("Failed to delete expired cache entry")
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Expired cache entries cleaned up")
	}
	return removed, nil
}

// Stats reports cache counters. Hit rate is a percentage of lookups served
// from cache, 0 when no lookups have happened.
func (s *Service) Stats(ctx context.Context) interfaces.CacheStats {
	hits := s.hits.Load()
	misses := s.misses.Load()

	var entries int
	var bytes int64
	if keys, err := s.store.Scan(ctx, keyPrefix); err == nil {
		entries = len(keys)
		if values, err := s.store.GetMany(ctx, keys); err == nil {
			for _, v := range values {
				bytes += int64(len(v))
			}
		}
	}

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = math.Round(float64(hits)/float64(hits+misses)*100*100) / 100
	}

	return interfaces.CacheStats{
		Entries:       entries,
		Bytes:         bytes,
		SizeMB:        math.Round(float64(bytes)/(1024*1024)*100) / 100,
		Hits:          hits,
		Misses:        misses,
		Writes:        s.writes.Load(),
		BatchWrites:   s.batchWrites.Load(),
		Invalidations: s.invalidations.Load(),
		Clears:        s.clears.Load(),
		HitRate:       hitRate,
	}
}

// MonitorSize compares the cache footprint against a size limit and evicts
// the entries closest to expiry until usage drops under the limit.
func (s *Service) MonitorSize(ctx context.Context, limitMB float64) (interfaces.CacheSizeReport, error) {
	keys, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return interfaces.CacheSizeReport{}, fmt.Errorf("failed to scan cache keys: %w", err)
	}

	values, err := s.store.GetMany(ctx, keys)
	if err != nil {
		return interfaces.CacheSizeReport{}, fmt.Errorf("failed to read cache entries: %w", err)
	}

	var totalBytes int64
	for _, v := range values {
		totalBytes += int64(len(v))
	}

	limitBytes := limitMB * 1024 * 1024
	evicted := 0

	if limitMB > 0 && float64(totalBytes) > limitBytes {
		// Evict entries with the least remaining lifetime first
		type candidate struct {
			key      string
			residual time.Duration
			size     int64
		}
		candidates := make([]candidate, 0, len(values))
		for key, value := range values {
			residual, err := s.store.TTL(ctx, key)
			if err != nil {
				continue
			}
			if residual < 0 {
				residual = time.Duration(math.MaxInt64)
			}
			candidates = append(candidates, candidate{key: key, residual: residual, size: int64(len(value))})
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].residual != candidates[j].residual {
				return candidates[i].residual < candidates[j].residual
			}
			return candidates[i].key < candidates[j].key
		})

		for _, c := range candidates {
			if float64(totalBytes) <= limitBytes {
				break
			}
			if err := s.store.Delete(ctx, c.key); err != nil {
				s.logger.Warn().Str("key", c.key).Err(err).Msg("Failed to evict cache entry")
				continue
			}
			totalBytes -= c.size
			evicted++
		}
	}

	sizeMB := math.Round(float64(totalBytes)/(1024*1024)*100) / 100
	status := "ok"
	if limitMB > 0 && sizeMB > limitMB*0.8 {
		status = "warning"
	}

	report := interfaces.CacheSizeReport{
		CurrentSizeMB: sizeMB,
		MaxSizeMB:     limitMB,
		Status:        status,
		Evicted:       evicted,
	}
	if limitMB > 0 {
		report.UsagePercent = math.Round(sizeMB/limitMB*10000) / 100
	}

	if evicted > 0 {
		s.logger.Info().
			Int("evicted", evicted).
			Float64("size_mb", sizeMB).
			Float64("limit_mb", limitMB).
			Msg("Cache size limit enforced")
	}

	return report, nil
}

// Ensure Service implements ResultCache interface
var _ interfaces.ResultCache = (*Service)(nil)
