// Package crawler discovers URLs reachable from a seed, restricted to the
// seed's domain and bounded by a page budget. Fetches go through the shared
// HTTP pool under the per-domain rate limit.
package crawler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
	"github.com/ternarybob/seeker/internal/httpclient"
	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/services/limiter"
)

// Service implements bounded same-domain URL discovery. Each Discover call
// owns its own frontier and visited set; the service itself is stateless
// and safe for concurrent use.
type Service struct {
	pool         *httpclient.Pool
	limiter      *limiter.RateLimiter
	extractor    *LinkExtractor
	fetchTimeout time.Duration
	logger       arbor.ILogger
}

// NewService creates a new crawler service.
func NewService(pool *httpclient.Pool, rateLimiter *limiter.RateLimiter, fetchTimeout time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		pool:         pool,
		limiter:      rateLimiter,
		extractor:    NewLinkExtractor(logger),
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Discover walks same-domain links breadth-first from the seed and returns
// up to maxPages visited URLs. URLs are normalized before the visited-set
// check so equivalent spellings never consume budget twice.
func (s *Service) Discover(ctx context.Context, seedURL string, maxPages int) ([]string, error) {
	seed, err := common.NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if maxPages < 1 {
		return nil, fmt.Errorf("max_pages must be at least 1, got %d", maxPages)
	}

	domain := common.URLHost(seed)
	pending := []string{seed}
	queued := map[string]bool{seed: true}
	visited := make(map[string]bool)

	for len(pending) > 0 && len(visited) < maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := pending[0]
		pending = pending[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		body, err := s.FetchPage(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transport failures are contained; the URL still counts
			// against the budget
			s.logger.Warn().Err(err).Str("url", current).Msg("Fetch failed during discovery")
			continue
		}
		if body == "" {
			continue
		}

		links, err := s.extractor.ExtractSameDomain(body, current, domain)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", current).Msg("Link extraction failed")
			continue
		}

		for _, link := range links {
			if !visited[link] && !queued[link] {
				queued[link] = true
				pending = append(pending, link)
			}
		}
	}

	urls := make([]string, 0, len(visited))
	for u := range visited {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	s.logger.Info().
		Str("seed", seed).
		Str("domain", domain).
		Int("max_pages", maxPages).
		Int("discovered", len(urls)).
		Msg("URL discovery completed")

	return urls, nil
}

// FetchPage retrieves one page body under the domain rate limit. Non-2xx
// responses and transport failures yield an empty body; the token spent on
// the attempt is refunded on every path.
func (s *Service) FetchPage(ctx context.Context, rawURL string) (string, error) {
	domain := common.URLHost(rawURL)

	if err := s.limiter.Acquire(ctx, domain); err != nil {
		return "", err
	}
	defer s.limiter.Release(domain)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	result, err := s.pool.Get(fetchCtx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Debug().Err(err).Str("url", rawURL).Msg("Transport failure")
		return "", nil
	}

	if !result.OK() {
		s.logger.Debug().Int("status", result.StatusCode).Str("url", rawURL).Msg("Non-2xx response")
		return "", nil
	}

	return result.Body, nil
}

// Ensure Service implements CrawlerService interface
var _ interfaces.CrawlerService = (*Service)(nil)
