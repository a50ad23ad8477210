package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/seeker/internal/models"
)

// ErrSearchNotFound is returned when a search id is unknown to the tracker
var ErrSearchNotFound = errors.New("search not found")

// StateTracker keeps the per-search progress record. All mutating operations
// on the same id are linearizable; different ids never serialize against
// each other. Terminal states are absorbing. States idle longer than the
// tracker's TTL are swept together with their retained results.
type StateTracker interface {
	// InitSearch creates the state with status=waiting.
	InitSearch(ctx context.Context, id string) error

	// SetTotal records the discovered URL count and moves to searching.
	SetTotal(ctx context.Context, id string, total int) error

	// IncProcessed atomically increments the processed counter.
	IncProcessed(ctx context.Context, id string) error

	// IncFound atomically increments the found-results counter.
	IncFound(ctx context.Context, id string) error

	// Complete transitions to the completed terminal state.
	Complete(ctx context.Context, id string) error

	// Fail transitions to the error terminal state with a message.
	Fail(ctx context.Context, id string, errMsg string) error

	// Get returns a snapshot with derived progress and elapsed time,
	// or false when the id is unknown.
	Get(id string) (models.StateSnapshot, bool)

	// StoreResults retains the ranked results for the lifetime of the state.
	StoreResults(id string, results []models.SearchResult) error

	// Results returns the retained ranked results for a completed search.
	Results(id string) ([]models.SearchResult, bool)

	// Sweep removes states (and their results) idle longer than the TTL.
	// Returns the number removed.
	Sweep() int
}
