package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases scheme and host",
			input:    "HTTP://Example.COM/Path",
			expected: "http://example.com/Path",
		},
		{
			name:     "strips default http port",
			input:    "http://example.com:80/page",
			expected: "http://example.com/page",
		},
		{
			name:     "strips default https port",
			input:    "https://example.com:443/page",
			expected: "https://example.com/page",
		},
		{
			name:     "keeps non-default port",
			input:    "http://example.com:8080/page",
			expected: "http://example.com:8080/page",
		},
		{
			name:     "drops fragment",
			input:    "https://example.com/page#section",
			expected: "https://example.com/page",
		},
		{
			name:     "empty path becomes slash",
			input:    "https://example.com",
			expected: "https://example.com/",
		},
		{
			name:     "preserves query",
			input:    "https://example.com/search?q=go",
			expected: "https://example.com/search?q=go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeURL_EquivalentSpellingsConverge(t *testing.T) {
	a, err := NormalizeURL("HTTPS://Example.com:443/docs#intro")
	require.NoError(t, err)
	b, err := NormalizeURL("https://example.com/docs")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestNormalizeURL_RejectsRelative(t *testing.T) {
	_, err := NormalizeURL("/relative/path")
	assert.Error(t, err)
}

func TestURLHost(t *testing.T) {
	assert.Equal(t, "example.com", URLHost("https://Example.COM/page"))
	assert.Equal(t, "example.com:8080", URLHost("http://example.com:8080/"))
	assert.Equal(t, "", URLHost("://bad"))
}
