// Package search orchestrates one search end to end: discover the URL set,
// evaluate every URL concurrently against the query (cache first, then
// fetch/parse/match), and return the results ranked by relevance.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
	"github.com/ternarybob/seeker/internal/services/ranker"
	"github.com/ternarybob/seeker/internal/services/workers"
)

// Service implements SearchService. Per-URL failures are contained and
// count as processed with no result; failures of the state tracker or the
// discovery phase abort the search and transition it to error.
type Service struct {
	crawler     interfaces.CrawlerService
	parser      interfaces.PageParser
	cache       interfaces.ResultCache
	tracker     interfaces.StateTracker
	events      interfaces.EventService
	concurrency int
	logger      arbor.ILogger
}

// NewService creates the search orchestrator.
func NewService(
	crawler interfaces.CrawlerService,
	parser interfaces.PageParser,
	cache interfaces.ResultCache,
	tracker interfaces.StateTracker,
	events interfaces.EventService,
	concurrency int,
	logger arbor.ILogger,
) *Service {
	return &Service{
		crawler:     crawler,
		parser:      parser,
		cache:       cache,
		tracker:     tracker,
		events:      events,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Search runs the full pipeline for one search id. The state must already
// be initialized by the caller; Search moves it through searching to a
// terminal state and retains the ranked results in the tracker.
func (s *Service) Search(ctx context.Context, id, seedURL, searchTerm string, maxPages int) ([]models.SearchResult, error) {
	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSearchStarted,
		Payload: models.SearchNotification{
			SearchID: id,
			Query:    searchTerm,
			SeedURL:  seedURL,
		},
	})

	results, err := s.run(ctx, id, seedURL, searchTerm, maxPages)
	if err != nil {
		s.fail(id, err)
		return nil, err
	}

	if err := s.tracker.StoreResults(id, results); err != nil {
		s.fail(id, err)
		return nil, err
	}
	if err := s.tracker.Complete(ctx, id); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSearchCompleted,
		Payload: models.SearchNotification{
			SearchID:     id,
			Query:        searchTerm,
			ResultsCount: len(results),
		},
	})

	s.logger.Info().
		Str("search_id", id).
		Str("query", searchTerm).
		Int("results", len(results)).
		Msg("Search completed")

	return results, nil
}

func (s *Service) run(ctx context.Context, id, seedURL, searchTerm string, maxPages int) ([]models.SearchResult, error) {
	urls, err := s.crawler.Discover(ctx, seedURL, maxPages)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	if err := s.tracker.SetTotal(ctx, id, len(urls)); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetMany(ctx, urls, searchTerm)
	if err != nil {
		// Degrades to all-miss; never fails the search
		s.logger.Warn().Err(err).Str("search_id", id).Msg("Batch cache lookup failed")
		cached = map[string]*models.CacheEntry{}
	}

	var (
		mu      sync.Mutex
		results []models.SearchResult
	)
	// trackErr records the first state mutation failure; the pool keeps
	// draining but the search is aborted afterwards
	var trackErr error
	var trackErrOnce sync.Once

	pool := workers.NewPool(ctx, s.concurrency, s.logger)
	pool.Start()

	for _, u := range urls {
		url := u
		entry := cached[url]
		job := func(jobCtx context.Context) error {
			if err := jobCtx.Err(); err != nil {
				return err
			}

			result := s.evaluate(jobCtx, url, searchTerm, entry)

			if err := s.tracker.IncProcessed(jobCtx, id); err != nil {
				trackErrOnce.Do(func() { trackErr = err })
				return err
			}
			if result != nil {
				if err := s.tracker.IncFound(jobCtx, id); err != nil {
					trackErrOnce.Do(func() { trackErr = err })
					return err
				}
				mu.Lock()
				results = append(results, *result)
				mu.Unlock()
			}

			if snap, ok := s.tracker.Get(id); ok {
				s.events.Publish(jobCtx, interfaces.Event{
					Type: interfaces.EventSearchProgress,
					Payload: models.ProgressNotification{
						SearchID:  id,
						URL:       url,
						Processed: snap.ProcessedURLs,
						Total:     snap.TotalURLs,
					},
				})
			}
			return nil
		}
		if err := pool.Submit(job); err != nil {
			break
		}
	}

	pool.Wait()

	if trackErr != nil {
		return nil, fmt.Errorf("state tracking failed: %w", trackErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rank by relevance descending; equal scores order by URL so repeated
	// searches return identical orderings
	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].URL < results[j].URL
	})

	return results, nil
}

// evaluate produces the result for one URL, consulting the cache first. A
// nil return means the page did not match; every outcome is written back
// to the cache, including the no-match one.
func (s *Service) evaluate(ctx context.Context, url, searchTerm string, entry *models.CacheEntry) *models.SearchResult {
	if entry != nil {
		return entry.Result
	}

	body, err := s.crawler.FetchPage(ctx, url)
	if err != nil {
		// The page was never evaluated, so there is no outcome to cache
		s.logger.Warn().Err(err).Str("url", url).Msg("Fetch failed during evaluation")
		return nil
	}
	if body == "" {
		s.cachePut(ctx, url, searchTerm, nil)
		return nil
	}

	page, err := s.parser.Parse(body)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Parse failed during evaluation")
		s.cachePut(ctx, url, searchTerm, nil)
		return nil
	}

	result := ranker.BuildResult(url, page, searchTerm)
	s.cachePut(ctx, url, searchTerm, result)
	return result
}

// cachePut writes an outcome back, logging rather than failing on error.
func (s *Service) cachePut(ctx context.Context, url, searchTerm string, result *models.SearchResult) {
	if err := s.cache.Put(ctx, url, searchTerm, result); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Cache write failed")
	}
}

// fail transitions the search to the error terminal state and notifies
// subscribers. Cancellation reports as "cancelled".
func (s *Service) fail(id string, err error) {
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "cancelled"
	}

	// Persist with a fresh context so the terminal state survives the
	// cancellation that caused it
	if ferr := s.tracker.Fail(context.Background(), id, msg); ferr != nil {
		s.logger.Error().Err(ferr).Str("search_id", id).Msg("Failed to record search failure")
	}

	s.events.Publish(context.Background(), interfaces.Event{
		Type: interfaces.EventSearchError,
		Payload: models.SearchNotification{
			SearchID: id,
			Error:    msg,
		},
	})

	s.logger.Warn().Str("search_id", id).Str("error", msg).Msg("Search failed")
}

// Ensure Service implements SearchService interface
var _ interfaces.SearchService = (*Service)(nil)
