package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
)

// BlobCipher implements Cipher using AES-256-GCM.
//
// Every record in the store is one self-contained blob: a random 12-byte IV
// followed by the GCM ciphertext with its 16-byte authentication tag. Storing
// the IV inline means a record can always be decrypted with nothing but its
// key, and a fresh IV per write guarantees two encryptions of the same
// plaintext never produce the same blob.
//
// The cipher is stateless and safe for concurrent use.
type BlobCipher struct{}

// NewBlobCipher creates a new BlobCipher.
func NewBlobCipher() *BlobCipher {
	return &BlobCipher{}
}

// Seal encrypts plaintext under key. A fresh random IV is generated on every
// call and prefixed to the returned blob.
func (b *BlobCipher) Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := b.newAEAD(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends to iv, producing IV || ciphertext+tag in one allocation.
	return aead.Seal(iv, iv, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal. Any failure — wrong key, truncated
// blob, tampered ciphertext — collapses to ErrDecryptionFailed; callers on
// tolerant read paths translate that to "absent".
func (b *BlobCipher) Open(key, blob []byte) ([]byte, error) {
	aead, err := b.newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < aead.NonceSize() {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	iv, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

// GenerateKey returns a fresh random 32-byte key.
func (b *BlobCipher) GenerateKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

func (b *BlobCipher) newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return cipher.NewGCM(block)
}
