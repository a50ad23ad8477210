package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the backing store contract shared by the result cache and
// the state tracker persistence. Implementations must provide atomic
// single-key operations and batched multi-key round trips.
type KeyValueStore interface {
	// Get retrieves the value for a key. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetEx stores a value with a time-to-live. A non-positive TTL stores
	// the value without expiry.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// TTL returns the residual time-to-live for a key.
	// Returns -1 for keys without expiry and ErrKeyNotFound when absent.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire replaces the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Scan returns all keys with the given prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// GetMany retrieves values for multiple keys in a single round trip.
	// Absent keys are omitted from the returned map.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetManyEx stores multiple values with a shared TTL in a single
	// batched write.
	SetManyEx(ctx context.Context, values map[string][]byte, ttl time.Duration) error

	// Close releases the underlying store.
	Close() error
}
