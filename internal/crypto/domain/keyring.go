// Package domain defines the core cryptographic domain models for the
// key hierarchy: KEK → named DEKs → per-user uuDEKs → records.
//
// The KEK encrypts the DEK registry. Each named DEK encrypts one category of
// records. The user DEK additionally encrypts the per-user unique DEKs, which
// encrypt that user's own records. The signing key rides along in the registry
// so token signatures rotate through the same machinery.
package domain

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// snapshot is one immutable generation of key material. Rotation builds a
// complete new snapshot and swaps the pointer, so a reader either sees the old
// generation or the new one, never a mix.
type snapshot struct {
	kek  []byte
	deks map[DekName][]byte
}

// Keyring holds the process-wide current key material: the KEK and the four
// named DEKs. It is an explicitly owned, injectable object, not ambient state.
// Readers take the current snapshot atomically; only the rotation engine
// mutates it, via SwapDek/SwapKEK after a committed rotation.
type Keyring struct {
	current atomic.Pointer[snapshot]
}

// NewKeyring builds a keyring from the KEK and a complete set of named DEKs.
// Every key must be exactly KeySize bytes and every name must be present.
func NewKeyring(kek []byte, deks map[DekName][]byte) (*Keyring, error) {
	if len(kek) != KeySize {
		return nil, fmt.Errorf("%w: KEK must be %d bytes, got %d", ErrInvalidKeySize, KeySize, len(kek))
	}

	copied := make(map[DekName][]byte, len(deks))
	for _, name := range AllDekNames() {
		key, ok := deks[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDekNotFound, name)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidKeySize, name, KeySize, len(key))
		}
		copied[name] = append([]byte(nil), key...)
	}

	kr := &Keyring{}
	kr.current.Store(&snapshot{
		kek:  append([]byte(nil), kek...),
		deks: copied,
	})
	return kr, nil
}

// KEK returns a copy of the current root key. The caller owns the slice and
// may use it past later swaps.
func (k *Keyring) KEK() []byte {
	return append([]byte(nil), k.current.Load().kek...)
}

// Dek returns a copy of the named DEK from the current snapshot. The caller
// owns the slice and may use it past later swaps.
func (k *Keyring) Dek(name DekName) ([]byte, error) {
	key, ok := k.current.Load().deks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDekNotFound, name)
	}
	return append([]byte(nil), key...), nil
}

// Deks returns a copy of the full current DEK set, for persisting the registry.
func (k *Keyring) Deks() map[DekName][]byte {
	snap := k.current.Load()
	out := make(map[DekName][]byte, len(snap.deks))
	for name, key := range snap.deks {
		out[name] = append([]byte(nil), key...)
	}
	return out
}

// SwapDek atomically replaces one named DEK. Called by the rotation engine
// after the new key is committed to storage. The retired key is not zeroed
// here: in-flight operations may still hold it, so it is left to the garbage
// collector.
func (k *Keyring) SwapDek(name DekName, newKey []byte) error {
	if !name.Valid() {
		return fmt.Errorf("%w: %s", ErrDekNotFound, name)
	}
	if len(newKey) != KeySize {
		return fmt.Errorf("%w: %s must be %d bytes", ErrInvalidKeySize, name, KeySize)
	}

	old := k.current.Load()
	deks := make(map[DekName][]byte, len(old.deks))
	for n, key := range old.deks {
		deks[n] = key
	}
	deks[name] = append([]byte(nil), newKey...)

	k.current.Store(&snapshot{kek: old.kek, deks: deks})
	return nil
}

// SwapKEK atomically replaces the root key. DEKs are unaffected: data
// encrypted under DEKs never needs re-encryption on KEK rotation. As with
// SwapDek, the retired KEK is not zeroed while readers may still hold it.
func (k *Keyring) SwapKEK(newKEK []byte) error {
	if len(newKEK) != KeySize {
		return fmt.Errorf("%w: KEK must be %d bytes", ErrInvalidKeySize, KeySize)
	}

	old := k.current.Load()
	k.current.Store(&snapshot{
		kek:  append([]byte(nil), newKEK...),
		deks: old.deks,
	})
	return nil
}

// Close zeroes the current key material. The keyring must not be used
// afterward.
func (k *Keyring) Close() {
	snap := k.current.Load()
	if snap == nil {
		return
	}
	Zero(snap.kek)
	for _, key := range snap.deks {
		Zero(key)
	}
	k.current.Store(&snapshot{deks: map[DekName][]byte{}})
}

// ParseKEK decodes and validates a hex-encoded KEK as supplied in CRYPTO_KEK.
func ParseKEK(kekHex string) ([]byte, error) {
	if kekHex == "" {
		return nil, ErrKEKNotSet
	}

	kek, err := hex.DecodeString(kekHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKEKEncoding, err)
	}
	if len(kek) != KeySize {
		Zero(kek)
		return nil, fmt.Errorf("%w: KEK must be %d bytes, got %d", ErrInvalidKeySize, KeySize, len(kek))
	}

	return kek, nil
}
