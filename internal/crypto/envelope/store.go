// Package envelope provides the encrypted record store: a typed wrapper around
// the key-value store where every read and write passes through the blob
// cipher with a caller-supplied key.
//
// Serialization is CBOR behind a generic boundary, so callers move typed
// records while the storage format stays fixed: CBOR(payload) sealed into
// IV || AES-GCM ciphertext.
package envelope

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/kv"
)

// Store mediates every encrypted record read/write. It is keyless by itself;
// each call supplies the encryption key, which is what lets one store instance
// serve records scoped to different tiers of the key hierarchy.
type Store struct {
	kv     kv.Store
	cipher service.Cipher
}

// NewStore creates an envelope store over the given key-value store.
func NewStore(kvStore kv.Store, cipher service.Cipher) *Store {
	return &Store{kv: kvStore, cipher: cipher}
}

// Get reads and decrypts the record at key. Decrypt and decode failures are
// treated identically to "key not found": the hot read path must stay simple
// for callers for whom "no data yet" is a normal outcome.
func Get[T any](ctx context.Context, s *Store, key string, encKey []byte) (T, bool, error) {
	var zero T

	blob, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	plaintext, err := s.cipher.Open(encKey, blob)
	if err != nil {
		return zero, false, nil
	}

	var value T
	if err := cbor.Unmarshal(plaintext, &value); err != nil {
		return zero, false, nil
	}

	return value, true, nil
}

// GetStrict is Get without the decrypt-as-absent tolerance: a record that
// exists but cannot be decrypted or decoded is an error. Rotation uses this to
// tell a missing path apart from a path it must skip and report.
func GetStrict[T any](ctx context.Context, s *Store, key string, encKey []byte) (T, bool, error) {
	var zero T

	blob, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	plaintext, err := s.cipher.Open(encKey, blob)
	if err != nil {
		return zero, false, err
	}

	var value T
	if err := cbor.Unmarshal(plaintext, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode record at %s: %w", key, err)
	}

	return value, true, nil
}

// Put serializes, encrypts, and writes the record. A fresh IV is generated on
// every call inside the cipher.
func Put[T any](ctx context.Context, s *Store, key string, encKey []byte, value T, opts ...kv.Option) error {
	plaintext, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	blob, err := s.cipher.Seal(encKey, plaintext)
	if err != nil {
		return err
	}

	return s.kv.Set(ctx, key, blob, opts...)
}

// Delete removes the record at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// Keys lists live record keys under prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.kv.Keys(ctx, prefix)
}

// DeletePrefix removes every record under prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return s.kv.DeletePrefix(ctx, prefix)
}
