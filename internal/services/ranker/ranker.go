package ranker

import (
	"math"
	"strings"

	"github.com/ternarybob/seeker/internal/models"
)

// Relevance component weights. Title presence dominates, body content and
// match position act as tie-breakers.
const (
	weightTitle    = 3.0
	weightMeta     = 2.0
	weightHeaders  = 1.5
	weightContent  = 1.0
	weightPosition = 0.5
)

// BuildResult scores a page against the query and assembles the search
// result for it. Returns nil when the body contains no occurrence of the
// query; a page is only a result if it actually matches.
func BuildResult(url string, page *models.PageRecord, query string) *models.SearchResult {
	matches := FindMatches(page, query)
	if len(matches) == 0 {
		return nil
	}

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	queryWords := strings.Fields(lowerQuery)

	relevance := weightTitle*fieldScore(page.Title, lowerQuery, queryWords) +
		weightMeta*fieldScore(page.MetaDescription, lowerQuery, queryWords) +
		weightHeaders*bestHeaderScore(page.Headers, lowerQuery, queryWords) +
		weightContent*contentScore(matches, lowerQuery, queryWords) +
		weightPosition*positionScore(matches)

	return &models.SearchResult{
		URL:       url,
		Title:     page.Title,
		Context:   bestContext(matches),
		Count:     len(matches),
		Relevance: round2(relevance),
	}
}

// fieldScore measures how strongly one text field matches the query: 1.0
// for a full substring match, otherwise the fraction of query words present
// in the field.
func fieldScore(field, lowerQuery string, queryWords []string) float64 {
	if field == "" || lowerQuery == "" {
		return 0
	}
	lowerField := strings.ToLower(field)
	if strings.Contains(lowerField, lowerQuery) {
		return 1.0
	}
	return wordOverlap(lowerField, queryWords)
}

// bestHeaderScore takes the strongest single header match.
func bestHeaderScore(headers []string, lowerQuery string, queryWords []string) float64 {
	best := 0.0
	for _, h := range headers {
		if score := fieldScore(h, lowerQuery, queryWords); score > best {
			best = score
		}
	}
	return best
}

// contentScore averages per-match context quality: a context that repeats
// the full query scores 1, otherwise its query-word coverage counts.
func contentScore(matches []models.Match, lowerQuery string, queryWords []string) float64 {
	if len(matches) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range matches {
		lowerContext := strings.ToLower(m.Context)
		if strings.Contains(lowerContext, lowerQuery) {
			total += 1.0
		} else {
			total += wordOverlap(lowerContext, queryWords)
		}
	}
	score := total / float64(len(matches))
	if score > 1 {
		score = 1
	}
	return score
}

// positionScore rewards early matches with harmonic decay: the i-th match
// contributes 1/(i+1), averaged over all matches.
func positionScore(matches []models.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	total := 0.0
	for i := range matches {
		total += 1.0 / float64(i+1)
	}
	return total / float64(len(matches))
}

// wordOverlap is the fraction of query words present as whole tokens in
// the text. Both sides tokenize on whitespace, so a query word that is
// merely a substring of a longer token does not count.
func wordOverlap(lowerText string, queryWords []string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(lowerText) {
		tokens[tok] = struct{}{}
	}
	found := 0
	for _, w := range queryWords {
		if _, ok := tokens[w]; ok {
			found++
		}
	}
	return float64(found) / float64(len(queryWords))
}

// bestContext returns the context of the highest-scoring match. Ties keep
// the earliest occurrence.
func bestContext(matches []models.Match) string {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.LocalScore > best.LocalScore {
			best = m
		}
	}
	return best.Context
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
