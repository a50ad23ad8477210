package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
)

// LinkExtractor discovers same-domain links from HTML content.
type LinkExtractor struct {
	logger arbor.ILogger
}

// NewLinkExtractor creates a new link extractor
func NewLinkExtractor(logger arbor.ILogger) *LinkExtractor {
	return &LinkExtractor{
		logger: logger,
	}
}

// ExtractSameDomain returns the normalized absolute URLs of all <a href>
// links on the page whose host equals domain (case-insensitive). Relative
// links are resolved against sourceURL.
func (le *LinkExtractor) ExtractSameDomain(html, sourceURL, domain string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for link extraction: %w", err)
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		le.logger.Warn().Err(err).Str("source_url", sourceURL).Msg("Failed to parse source URL for link resolution")
		baseURL = nil
	}

	domain = strings.ToLower(domain)
	linkSet := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || shouldSkipLink(href) {
			return
		}

		resolved := resolveURL(href, baseURL)
		if resolved == "" {
			return
		}

		normalized, err := common.NormalizeURL(resolved)
		if err != nil {
			return
		}

		if common.URLHost(normalized) != domain {
			return
		}

		if !linkSet[normalized] {
			linkSet[normalized] = true
			links = append(links, normalized)
		}
	})

	le.logger.Debug().
		Str("source_url", sourceURL).
		Int("links_found", len(links)).
		Msg("Same-domain links extracted")

	return links, nil
}

// shouldSkipLink filters non-navigable link schemes and fragments.
func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))

	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}

	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}

	return false
}

// resolveURL resolves a potentially relative URL against a base URL.
func resolveURL(href string, baseURL *url.URL) string {
	if baseURL == nil {
		if parsed, err := url.Parse(href); err == nil && parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}

	resolved, err := baseURL.Parse(href)
	if err != nil {
		return ""
	}

	return resolved.String()
}
