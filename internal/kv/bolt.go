package kv

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// row is the on-disk wrapper for every record. ExpiresAt is a unix timestamp
// in seconds, zero meaning no expiry.
type row struct {
	ExpiresAt int64  `cbor:"1,keyasint"`
	Value     []byte `cbor:"2,keyasint"`
}

// BoltStore implements Store using a single-file bbolt database. All records
// live in one bucket; prefix listing is a cursor seek. Expired records are
// skipped on read and lazily deleted.
type BoltStore struct {
	db    *bolt.DB
	clock Clock
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string, clock Clock) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, clock: clock}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the record value and whether it exists. An expired record reads
// as absent and is deleted in the background of the call.
func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	var found, expired bool

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return nil
		}

		var r row
		if err := cbor.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("corrupted record at %s: %w", key, err)
		}

		if s.isExpired(r.ExpiresAt) {
			expired = true
			return nil
		}

		value = append([]byte(nil), r.Value...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if expired {
		// Best effort lazy cleanup, absence is what the caller sees either way.
		_ = s.Delete(ctx, key)
	}

	return value, found, nil
}

// Set writes the record value, replacing any previous value.
func (s *BoltStore) Set(ctx context.Context, key string, value []byte, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := row{Value: value}
	if o.ttl > 0 {
		r.ExpiresAt = s.clock.Now().Add(o.ttl).Unix()
	}

	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Put([]byte(key), data)
	})
}

// Replace rewrites the record value in place, keeping the expiry the record
// already carries. Rotation uses this so a re-encrypted guest record still
// expires on its original schedule.
func (s *BoltStore) Replace(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		r := row{Value: value}
		if data := b.Get([]byte(key)); data != nil {
			var prev row
			if err := cbor.Unmarshal(data, &prev); err != nil {
				return fmt.Errorf("corrupted record at %s: %w", key, err)
			}
			r.ExpiresAt = prev.ExpiresAt
		}

		data, err := cbor.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(key))
	})
}

// Keys returns all live record keys with the given prefix, in lexical order.
func (s *BoltStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	p := []byte(prefix)

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var r row
			if err := cbor.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("corrupted record at %s: %w", k, err)
			}
			if s.isExpired(r.ExpiresAt) {
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// DeletePrefix removes every record with the given prefix.
func (s *BoltStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	p := []byte(prefix)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func (s *BoltStore) isExpired(expiresAt int64) bool {
	return expiresAt > 0 && !s.clock.Now().Before(time.Unix(expiresAt, 0))
}
