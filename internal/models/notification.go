package models

// SearchNotification is the payload published on the event bus when a
// search starts, completes, or fails. The websocket layer forwards it to
// the clients watching that search id.
type SearchNotification struct {
	SearchID     string `json:"search_id"`
	Query        string `json:"query,omitempty"`
	SeedURL      string `json:"url,omitempty"`
	ResultsCount int    `json:"results_count,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ProgressNotification is published after each processed URL.
type ProgressNotification struct {
	SearchID  string `json:"search_id"`
	URL       string `json:"url"`
	Processed int    `json:"processed_urls"`
	Total     int    `json:"total_urls"`
}
