// Package usecase implements the key hierarchy lifecycle: registry bootstrap,
// keyring loading, and the rotation engine.
package usecase

import (
	"bytes"
	"context"
	"fmt"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/kv"
)

// registryRecord is the persisted DEK registry: every named key, sealed as one
// blob under the KEK at crypto/env.
type registryRecord struct {
	Keys map[cryptoDomain.DekName][]byte `cbor:"1,keyasint"`
}

// KeyringUseCase bootstraps and loads the encrypted DEK registry.
type KeyringUseCase struct {
	kv     kv.Store
	store  *envelope.Store
	cipher service.Cipher
}

// NewKeyringUseCase creates the keyring use case.
func NewKeyringUseCase(kvStore kv.Store, store *envelope.Store, cipher service.Cipher) *KeyringUseCase {
	return &KeyringUseCase{kv: kvStore, store: store, cipher: cipher}
}

// Init generates a complete set of named DEKs and persists the registry under
// the KEK. Refuses to overwrite an existing registry: re-running init against
// live data would orphan every record encrypted under the current keys.
func (u *KeyringUseCase) Init(ctx context.Context, kek []byte) (*cryptoDomain.Keyring, error) {
	if _, found, err := u.kv.Get(ctx, cryptoDomain.PathRegistry); err != nil {
		return nil, err
	} else if found {
		return nil, errors.Wrap(errors.ErrConflict, "key registry already initialized")
	}

	deks := make(map[cryptoDomain.DekName][]byte, len(cryptoDomain.AllDekNames()))
	for _, name := range cryptoDomain.AllDekNames() {
		key, err := u.cipher.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s key: %w", name, err)
		}
		deks[name] = key
	}

	if err := u.Persist(ctx, kek, deks); err != nil {
		return nil, err
	}

	return cryptoDomain.NewKeyring(kek, deks)
}

// Load decrypts the registry with the KEK and builds the keyring. A missing or
// undecryptable registry is a fatal configuration error: the process must not
// serve traffic with an unknown key state.
func (u *KeyringUseCase) Load(ctx context.Context, kek []byte) (*cryptoDomain.Keyring, error) {
	record, found, err := envelope.GetStrict[registryRecord](ctx, u.store, cryptoDomain.PathRegistry, kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrRegistryNotInitialized, err)
	}
	if !found {
		return nil, cryptoDomain.ErrRegistryNotInitialized
	}

	return cryptoDomain.NewKeyring(kek, record.Keys)
}

// Persist seals the full DEK set under kek and writes it to crypto/env, then
// reads it back and verifies the content before trusting the write. Key writes
// are never fire-and-forget.
func (u *KeyringUseCase) Persist(ctx context.Context, kek []byte, deks map[cryptoDomain.DekName][]byte) error {
	record := registryRecord{Keys: deks}
	if err := envelope.Put(ctx, u.store, cryptoDomain.PathRegistry, kek, record); err != nil {
		return fmt.Errorf("failed to persist key registry: %w", err)
	}

	verified, found, err := envelope.GetStrict[registryRecord](ctx, u.store, cryptoDomain.PathRegistry, kek)
	if err != nil || !found {
		return fmt.Errorf("key registry read-back verification failed: %w", err)
	}
	for name, key := range deks {
		if !bytes.Equal(verified.Keys[name], key) {
			return fmt.Errorf("key registry read-back mismatch for %s", name)
		}
	}

	return nil
}
