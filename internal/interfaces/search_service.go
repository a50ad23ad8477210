package interfaces

import (
	"context"

	"github.com/ternarybob/seeker/internal/models"
)

// SearchService runs the full pipeline for one search: discover URLs from
// the seed, process each one concurrently, and return results ranked by
// relevance. Per-URL failures never fail the search; orchestrator-level
// failures transition the state to error and propagate.
type SearchService interface {
	Search(ctx context.Context, id, seedURL, searchTerm string, maxPages int) ([]models.SearchResult, error)
}

// CrawlerService discovers same-domain URLs reachable from a seed, bounded
// by a page budget, and fetches single pages through the shared HTTP pool
// under the per-domain rate limit.
type CrawlerService interface {
	// Discover returns up to maxPages normalized URLs on the seed's host.
	Discover(ctx context.Context, seedURL string, maxPages int) ([]string, error)

	// FetchPage retrieves one page body. Non-2xx responses and transport
	// failures yield an empty body and no error.
	FetchPage(ctx context.Context, url string) (string, error)
}

// PageParser turns raw HTML into a structured page record. Results are
// memoized by a stable fingerprint of the input.
type PageParser interface {
	Parse(html string) (*models.PageRecord, error)
}
