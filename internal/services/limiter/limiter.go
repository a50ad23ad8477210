// Package limiter implements per-domain request rate limiting with a token
// bucket: a steady refill rate with a burst capacity per domain. Buckets for
// different domains never serialize against each other.
package limiter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks one token bucket per domain.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rate    float64 // tokens per second
	burst   float64 // bucket capacity
}

// bucket holds the token state for a single domain.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter with the given steady rate
// (requests/second) and burst capacity.
func NewRateLimiter(requestsPerSecond, burst float64) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    requestsPerSecond,
		burst:   burst,
	}
}

// Acquire blocks until a token is available for the domain, then consumes
// it. The wait honors context cancellation, and the bucket lock is not
// held while waiting so a concurrent Release is never delayed. Domains
// compare case-insensitively; an empty domain is not limited.
func (rl *RateLimiter) Acquire(ctx context.Context, domain string) error {
	if domain == "" {
		return nil
	}
	b := rl.bucket(domain)

	for {
		b.mu.Lock()
		b.refill(rl.rate, rl.burst)
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		// Not enough tokens: sleep one refill interval and retry
		timer := time.NewTimer(time.Duration(float64(time.Second) / rl.rate))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release refunds one token to the domain's bucket, capped at the burst
// size. Used to compensate an acquire whose fetch never reached the remote.
func (rl *RateLimiter) Release(domain string) {
	if domain == "" {
		return
	}
	b := rl.bucket(domain)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tokens < rl.burst {
		b.tokens++
	}
}

// Tokens returns the current token count for a domain after refill.
func (rl *RateLimiter) Tokens(domain string) float64 {
	b := rl.bucket(domain)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(rl.rate, rl.burst)
	return b.tokens
}

// bucket returns the bucket for a domain, creating it at full capacity.
func (rl *RateLimiter) bucket(domain string) *bucket {
	key := strings.ToLower(domain)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{
			tokens:     rl.burst,
			lastRefill: time.Now(),
		}
		rl.buckets[key] = b
	}
	return b
}

// refill credits tokens for the time elapsed since the last refill.
// Callers must hold the bucket mutex.
func (b *bucket) refill(rate, burst float64) {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(burst, b.tokens+elapsed*rate)
	b.lastRefill = now
}
