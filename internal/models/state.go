package models

import (
	"math"
	"time"
)

// SearchStatus is the lifecycle status of one search.
type SearchStatus string

const (
	StatusWaiting   SearchStatus = "waiting"
	StatusSearching SearchStatus = "searching"
	StatusCompleted SearchStatus = "completed"
	StatusError     SearchStatus = "error"
)

// IsTerminal reports whether the status is absorbing.
func (s SearchStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// SearchState tracks the progress of one search. All mutations go through
// the state tracker, which serializes them per search id.
type SearchState struct {
	SearchID      string       `json:"search_id"`
	TotalURLs     int          `json:"total_urls"`
	ProcessedURLs int          `json:"processed_urls"`
	FoundResults  int          `json:"found_results"`
	Status        SearchStatus `json:"current_status"`
	StartTime     time.Time    `json:"start_time"`
	LastUpdate    time.Time    `json:"last_update"`
	Error         string       `json:"error,omitempty"`
}

// StateSnapshot is an immutable read of a SearchState with derived fields.
type StateSnapshot struct {
	SearchID      string       `json:"search_id"`
	TotalURLs     int          `json:"total_urls"`
	ProcessedURLs int          `json:"processed_urls"`
	FoundResults  int          `json:"found_results"`
	Status        SearchStatus `json:"current_status"`
	Progress      float64      `json:"progress"`
	ElapsedTime   float64      `json:"elapsed_time"`
	Error         string       `json:"error,omitempty"`
}

// Snapshot derives the read view at the given instant.
// Progress is 0 when no URLs have been discovered yet.
func (s *SearchState) Snapshot(now time.Time) StateSnapshot {
	progress := 0.0
	if s.TotalURLs > 0 {
		progress = round2(float64(s.ProcessedURLs) / float64(s.TotalURLs) * 100)
	}

	return StateSnapshot{
		SearchID:      s.SearchID,
		TotalURLs:     s.TotalURLs,
		ProcessedURLs: s.ProcessedURLs,
		FoundResults:  s.FoundResults,
		Status:        s.Status,
		Progress:      progress,
		ElapsedTime:   round2(now.Sub(s.StartTime).Seconds()),
		Error:         s.Error,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
