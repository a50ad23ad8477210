// Package parser turns raw HTML into a structured page record: title, meta
// description, section headers and the flattened body text used for
// matching. Parses are memoized by a SHA-256 fingerprint of the input so
// re-fetched identical pages cost one parse.
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
)

// Service parses HTML pages with content-addressed memoization.
type Service struct {
	logger arbor.ILogger
	mu     sync.RWMutex
	memo   map[string]*models.PageRecord
}

// NewService creates a new parser service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		memo:   make(map[string]*models.PageRecord),
	}
}

// Parse extracts a page record from raw HTML. Identical input returns the
// memoized record. A parse failure returns a nil record and the error.
func (s *Service) Parse(html string) (*models.PageRecord, error) {
	key := fingerprint(html)

	s.mu.RLock()
	cached, ok := s.memo[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Drop non-content subtrees entirely before extraction
	doc.Find("script, style, iframe, noscript").Remove()

	record := &models.PageRecord{
		Title:           extractTitle(doc),
		MetaDescription: extractMetaDescription(doc),
		Headers:         extractHeaders(doc),
		BodyText:        extractBodyText(doc),
		RawHTML:         html,
	}

	s.mu.Lock()
	s.memo[key] = record
	s.mu.Unlock()

	s.logger.Debug().
		Str("title", record.Title).
		Int("headers", len(record.Headers)).
		Int("body_chars", len(record.BodyText)).
		Msg("Parsed page")

	return record, nil
}

// extractTitle prefers <title>, falls back to the first <h1>, then "Untitled".
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}

func extractMetaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return content
}

// extractHeaders collects h1-h3 text in document order, dropping empties.
func extractHeaders(doc *goquery.Document) []string {
	var headers []string
	doc.Find("h1, h2, h3").Each(func(i int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			headers = append(headers, text)
		}
	})
	return headers
}

// extractBodyText joins the text of all content containers with single
// spaces.
func extractBodyText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p, div, article, section").Each(func(i int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// fingerprint returns a stable content digest for the memo key. A
// cryptographic hash is used instead of a per-process randomized map hash
// so the key is reproducible across runs.
func fingerprint(html string) string {
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}

// Ensure Service implements PageParser interface
var _ interfaces.PageParser = (*Service)(nil)
