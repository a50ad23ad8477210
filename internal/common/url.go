package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes an absolute URL so that equivalent spellings
// compare equal: scheme and host are lowercased, default ports stripped,
// the fragment removed, and an empty path becomes "/". Query strings are
// preserved as-is.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if host, port, ok := strings.Cut(u.Host, ":"); ok {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// URLHost returns the lowercased host component of a URL, or "" when the
// URL cannot be parsed. Domain comparison is case-insensitive throughout.
func URLHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
