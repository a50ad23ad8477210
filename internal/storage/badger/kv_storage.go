package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
)

// KVStorage implements the KeyValueStore interface over Badger. Entry
// expiry uses Badger's native TTL so expired keys vanish without a sweeper.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStore {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a value by key. Expired keys report ErrKeyNotFound.
func (s *KVStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.DB().View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// SetEx stores a value with a time-to-live. A zero or negative ttl stores
// the value without expiry.
func (s *KVStorage) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.DB().Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.DB().Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// TTL reports the remaining lifetime of a key: the residual duration for an
// expiring key, -1 for a key with no expiry, ErrKeyNotFound otherwise.
func (s *KVStorage) TTL(ctx context.Context, key string) (time.Duration, error) {
	var remaining time.Duration
	err := s.db.DB().View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		expiresAt := item.ExpiresAt()
		if expiresAt == 0 {
			remaining = -1
			return nil
		}
		remaining = time.Until(time.Unix(int64(expiresAt), 0))
		if remaining < 0 {
			remaining = 0
		}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return 0, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read TTL of key %s: %w", key, err)
	}
	return remaining, nil
}

// Expire resets the TTL of an existing key, rewriting the entry with the
// same value and the new lifetime.
func (s *KVStorage) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := s.db.DB().Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err == badger.ErrKeyNotFound {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to expire key %s: %w", key, err)
	}
	return nil
}

// Scan returns all live keys with the given prefix. Values are not read.
func (s *KVStorage) Scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.DB().View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// GetMany retrieves the present subset of keys in one read transaction.
// Absent keys are simply omitted from the result map.
func (s *KVStorage) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	values := make(map[string][]byte, len(keys))
	err := s.db.DB().View(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := txn.Get([]byte(key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			values[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %d keys: %w", len(keys), err)
	}
	return values, nil
}

// SetManyEx writes a batch of values sharing one TTL through a write batch,
// amortizing commit overhead across the batch.
func (s *KVStorage) SetManyEx(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	wb := s.db.DB().NewWriteBatch()
	defer wb.Cancel()

	for key, value := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := wb.SetEntry(entry); err != nil {
			return fmt.Errorf("failed to batch key %s: %w", key, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush batch of %d keys: %w", len(values), err)
	}
	return nil
}

// Close releases the underlying database.
func (s *KVStorage) Close() error {
	return s.db.Close()
}

// Ensure KVStorage implements KeyValueStore interface
var _ interfaces.KeyValueStore = (*KVStorage)(nil)
