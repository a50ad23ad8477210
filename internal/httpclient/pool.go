// Package httpclient provides the single shared HTTP client used by every
// fetch in the pipeline. The client is configured once at startup with a
// bounded connection pool, default headers and a total per-request timeout.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/seeker/internal/common"
)

// FetchResult is the outcome of one GET. A non-2xx status yields an empty
// body and no error; the pipeline proceeds with a "no content" outcome.
type FetchResult struct {
	StatusCode int
	Body       string
}

// OK reports whether the response carried usable content.
func (r *FetchResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Pool wraps one long-lived http.Client shared by all fetches.
type Pool struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// NewPool creates the shared client from configuration.
func NewPool(config *common.HTTPClientConfig) *Pool {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        config.MaxConnections,
		MaxIdleConnsPerHost: config.MaxConnections,
		MaxConnsPerHost:     config.MaxConnections,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Pool{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
		userAgent:   config.UserAgent,
		maxBodySize: config.MaxBodySize,
	}
}

// Get issues a GET for an absolute URL through the shared client.
// Transport failures (connect, read, TLS, timeout) are returned as errors;
// any HTTP status is returned in the result.
func (p *Pool) Get(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	result := &FetchResult{StatusCode: resp.StatusCode}
	if !result.OK() {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, p.maxBodySize))
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	result.Body = string(body)
	return result, nil
}

// CloseIdleConnections drops pooled connections that have gone idle.
func (p *Pool) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}
