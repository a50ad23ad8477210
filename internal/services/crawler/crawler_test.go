package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
	"github.com/ternarybob/seeker/internal/httpclient"
	"github.com/ternarybob/seeker/internal/services/limiter"
)

func newTestCrawler(t *testing.T) *Service {
	t.Helper()

	pool := httpclient.NewPool(&common.HTTPClientConfig{
		MaxConnections: 10,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "test-agent",
		MaxBodySize:    500_000,
	})
	rl := limiter.NewRateLimiter(1000, 1000)
	return NewService(pool, rl, 2*time.Second, arbor.NewLogger())
}

func TestDiscover_FollowsSameDomainLinks(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="/page1">one</a>
			<a href="%s/page2">two</a>
			<a href="https://other-domain.invalid/elsewhere">offsite</a>
		</body></html>`, server.URL)
	})
	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/">home</a></body></html>`)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	urls, err := newTestCrawler(t).Discover(context.Background(), server.URL, 100)
	require.NoError(t, err)

	assert.Len(t, urls, 3)
	for _, u := range urls {
		assert.NotContains(t, u, "other-domain.invalid")
	}
}

func TestDiscover_RespectsMaxPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page links to two fresh pages; discovery must stop at the cap
		base := strings.TrimSuffix(r.URL.Path, "/")
		fmt.Fprintf(w, `<html><body>
			<a href="%s/a">a</a>
			<a href="%s/b">b</a>
		</body></html>`, base, base)
	}))
	defer server.Close()

	urls, err := newTestCrawler(t).Discover(context.Background(), server.URL, 5)
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestDiscover_SeedAlwaysIncluded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no links here</body></html>`)
	}))
	defer server.Close()

	urls, err := newTestCrawler(t).Discover(context.Background(), server.URL, 10)
	require.NoError(t, err)

	seed, err := common.NormalizeURL(server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{seed}, urls)
}

func TestDiscover_DeduplicatesEquivalentURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The same page spelled three ways
		fmt.Fprint(w, `<html><body>
			<a href="/page">a</a>
			<a href="/page#section">b</a>
			<a href="/page">c</a>
		</body></html>`)
	}))
	defer server.Close()

	urls, err := newTestCrawler(t).Discover(context.Background(), server.URL, 10)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestDiscover_InvalidSeed(t *testing.T) {
	_, err := newTestCrawler(t).Discover(context.Background(), "not-a-url", 10)
	assert.Error(t, err)
}

func TestDiscover_InvalidMaxPages(t *testing.T) {
	_, err := newTestCrawler(t).Discover(context.Background(), "https://example.com/", 0)
	assert.Error(t, err)
}

func TestDiscover_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCrawler(t).Discover(ctx, "https://example.com/", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchPage_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer server.Close()

	body, err := newTestCrawler(t).FetchPage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "hello")
}

func TestFetchPage_Non2xxYieldsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	body, err := newTestCrawler(t).FetchPage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestFetchPage_TransportFailureYieldsEmptyBody(t *testing.T) {
	// Closed server refuses connections
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	body, err := newTestCrawler(t).FetchPage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestFetchPage_ReleasesTokenOnFailure(t *testing.T) {
	pool := httpclient.NewPool(&common.HTTPClientConfig{
		MaxConnections: 10,
		RequestTimeout: time.Second,
		UserAgent:      "test-agent",
		MaxBodySize:    500_000,
	})
	rl := limiter.NewRateLimiter(0.001, 2)
	svc := NewService(pool, rl, time.Second, arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	host := common.URLHost(server.URL)

	// With a negligible refill rate the bucket only stays full because the
	// token is refunded after each failed fetch
	for i := 0; i < 5; i++ {
		_, err := svc.FetchPage(context.Background(), server.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, rl.Tokens(host), 1.0)
}
