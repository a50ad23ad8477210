// Package ranker finds query occurrences in parsed pages and scores the
// pages by relevance. Matching is case-insensitive substring search;
// scoring blends title, meta description, header, content and position
// signals into one weighted relevance value.
package ranker

import (
	"strings"

	"github.com/ternarybob/seeker/internal/models"
)

// contextRadius is how many characters of surrounding text are captured on
// each side of a match.
const contextRadius = 100

// headerBoost is the local score multiplier when the query also appears in
// one of the page headers.
const headerBoost = 1.5

// FindMatches locates every non-overlapping, case-insensitive occurrence of
// query in the page body. Each match carries its byte position, a context
// snippet in original case, and a local score favoring early occurrences on
// pages whose headers also mention the query.
func FindMatches(page *models.PageRecord, query string) []models.Match {
	query = strings.TrimSpace(query)
	if page == nil || query == "" || page.BodyText == "" {
		return nil
	}

	body := page.BodyText
	lowerBody := strings.ToLower(body)
	lowerQuery := strings.ToLower(query)

	boost := 1.0
	if queryInHeaders(page.Headers, lowerQuery) {
		boost = headerBoost
	}

	var matches []models.Match
	offset := 0
	for {
		idx := strings.Index(lowerBody[offset:], lowerQuery)
		if idx < 0 {
			break
		}
		pos := offset + idx

		matches = append(matches, models.Match{
			Position:   pos,
			Context:    contextAround(body, pos, len(query)),
			LocalScore: localScore(pos, len(body), boost),
		})

		// Advance past the whole occurrence so matches never overlap
		offset = pos + len(lowerQuery)
		if offset >= len(lowerBody) {
			break
		}
	}

	return matches
}

// contextAround returns the original-case snippet surrounding a match,
// clamped to the body bounds.
func contextAround(body string, pos, queryLen int) string {
	start := pos - contextRadius
	if start < 0 {
		start = 0
	}
	end := pos + queryLen + contextRadius
	if end > len(body) {
		end = len(body)
	}
	return body[start:end]
}

// localScore weights a single occurrence: a base of 1, up to doubled for a
// match at the very start of the body, then the header boost on top.
func localScore(pos, bodyLen int, boost float64) float64 {
	positionFactor := 0.0
	if bodyLen > 0 {
		positionFactor = 1 - float64(pos)/float64(bodyLen)
	}
	return (1 + positionFactor) * boost
}

func queryInHeaders(headers []string, lowerQuery string) bool {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), lowerQuery) {
			return true
		}
	}
	return false
}
