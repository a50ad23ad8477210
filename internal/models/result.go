package models

// Match is one occurrence of the search term in a page's body text.
// Position is a character index into BodyText.
type Match struct {
	Position   int     `json:"position"`
	Context    string  `json:"context"`
	LocalScore float64 `json:"local_score"`
}

// SearchResult is the ranked outcome for one URL that had at least one match.
type SearchResult struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Context   string  `json:"context"`
	Count     int     `json:"count"`
	Relevance float64 `json:"relevance"`
}

// CacheEntry wraps a cached search outcome. A nil Result is a legitimate
// cached "no match" outcome, distinct from a cache miss.
type CacheEntry struct {
	Result *SearchResult `json:"result"`
}
