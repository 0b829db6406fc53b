// Package service provides the cryptographic primitives for the key hierarchy:
// the AES-256-GCM blob cipher, key generation, key derivation, token signing,
// and KEK loading (environment or KMS keeper).
package service

// Cipher seals and opens encrypted blobs in the fixed storage format
// IV (12 bytes) || AES-GCM ciphertext+tag.
type Cipher interface {
	// Seal encrypts plaintext under key with a fresh random IV per call.
	Seal(key, plaintext []byte) ([]byte, error)

	// Open decrypts a blob produced by Seal. Returns ErrDecryptionFailed for a
	// wrong key, tampered ciphertext, or truncated blob.
	Open(key, blob []byte) ([]byte, error)

	// GenerateKey returns fresh random key material of the hierarchy's strength.
	GenerateKey() ([]byte, error)
}

// Signer produces and verifies hex HMAC signatures under the keyring's current
// signing key.
type Signer interface {
	// Sign returns the hex signature of data.
	Sign(data string) (string, error)

	// Verify reports whether sig is a valid signature of data under the current
	// signing key. Malformed input reads as invalid, never as an error.
	Verify(data, sig string) bool
}
