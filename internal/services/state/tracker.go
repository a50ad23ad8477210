// Package state tracks per-search progress. The in-memory record is
// authoritative; every mutation is written through as a JSON snapshot to
// the key/value store under search_state:<id> with the configured TTL, so
// a restarted process can still answer status queries for recent searches.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
)

const statePrefix = "search_state:"

// entry pairs one search's state with its own lock so mutations on
// different searches never serialize against each other.
type entry struct {
	mu      sync.Mutex
	state   models.SearchState
	results []models.SearchResult
}

// Tracker implements StateTracker with per-id locking and write-through
// persistence.
type Tracker struct {
	store  interfaces.KeyValueStore
	logger arbor.ILogger
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewTracker creates a tracker whose states and results live for ttl past
// their last update.
func NewTracker(store interfaces.KeyValueStore, ttl time.Duration, logger arbor.ILogger) *Tracker {
	return &Tracker{
		store:   store,
		logger:  logger,
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// InitSearch creates the state record in the waiting status. Initializing
// an existing id resets it.
func (t *Tracker) InitSearch(ctx context.Context, id string) error {
	now := time.Now()
	e := &entry{
		state: models.SearchState{
			SearchID:   id,
			Status:     models.StatusWaiting,
			StartTime:  now,
			LastUpdate: now,
		},
	}

	t.mu.Lock()
	t.entries[id] = e
	t.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return t.persist(ctx, &e.state)
}

// SetTotal records the discovered URL count and moves to searching.
func (t *Tracker) SetTotal(ctx context.Context, id string, total int) error {
	return t.mutate(ctx, id, func(s *models.SearchState) {
		s.TotalURLs = total
		s.Status = models.StatusSearching
	})
}

// IncProcessed increments the processed counter.
func (t *Tracker) IncProcessed(ctx context.Context, id string) error {
	return t.mutate(ctx, id, func(s *models.SearchState) {
		s.ProcessedURLs++
	})
}

// IncFound increments the found-results counter.
func (t *Tracker) IncFound(ctx context.Context, id string) error {
	return t.mutate(ctx, id, func(s *models.SearchState) {
		s.FoundResults++
	})
}

// Complete transitions to the completed terminal state.
func (t *Tracker) Complete(ctx context.Context, id string) error {
	return t.mutate(ctx, id, func(s *models.SearchState) {
		s.Status = models.StatusCompleted
	})
}

// Fail transitions to the error terminal state with a message.
func (t *Tracker) Fail(ctx context.Context, id string, errMsg string) error {
	return t.mutate(ctx, id, func(s *models.SearchState) {
		s.Status = models.StatusError
		s.Error = errMsg
	})
}

// Get returns a snapshot of the state, or false when the id is unknown.
func (t *Tracker) Get(id string) (models.StateSnapshot, bool) {
	e, ok := t.entry(id)
	if !ok {
		return models.StateSnapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(time.Now()), true
}

// StoreResults retains the ranked results alongside the state.
func (t *Tracker) StoreResults(id string, results []models.SearchResult) error {
	e, ok := t.entry(id)
	if !ok {
		return interfaces.ErrSearchNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = results
	return nil
}

// Results returns the retained ranked results, or false when the id is
// unknown or has no stored results yet.
func (t *Tracker) Results(id string) ([]models.SearchResult, bool) {
	e, ok := t.entry(id)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.results == nil {
		return nil, false
	}
	return e.results, true
}

// Sweep removes states idle longer than the TTL, with their results.
func (t *Tracker) Sweep() int {
	cutoff := time.Now().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, e := range t.entries {
		e.mu.Lock()
		idle := e.state.LastUpdate.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(t.entries, id)
			removed++
		}
	}

	if removed > 0 {
		t.logger.Info().Int("removed", removed).Msg("Idle search states swept")
	}
	return removed
}

// mutate applies fn under the entry lock, refuses mutations on terminal
// states, and writes the new snapshot through to storage. A persistence
// failure is returned so the caller can abort the search.
func (t *Tracker) mutate(ctx context.Context, id string, fn func(*models.SearchState)) error {
	e, ok := t.entry(id)
	if !ok {
		return interfaces.ErrSearchNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status.IsTerminal() {
		return fmt.Errorf("search %s is already %s", id, e.state.Status)
	}

	fn(&e.state)
	e.state.LastUpdate = time.Now()
	return t.persist(ctx, &e.state)
}

// persist writes the state snapshot to storage. Callers hold the entry lock.
func (t *Tracker) persist(ctx context.Context, s *models.SearchState) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode search state: %w", err)
	}
	if err := t.store.SetEx(ctx, statePrefix+s.SearchID, raw, t.ttl); err != nil {
		return fmt.Errorf("failed to persist search state: %w", err)
	}
	return nil
}

func (t *Tracker) entry(id string) (*entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// Ensure Tracker implements StateTracker interface
var _ interfaces.StateTracker = (*Tracker)(nil)
