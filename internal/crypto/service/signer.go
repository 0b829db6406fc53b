package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
)

// HMACSigner implements Signer with HMAC-SHA256 under the keyring's current
// signing key. Because the key is read from the keyring on every call,
// rotating the signing key invalidates all outstanding signatures immediately.
type HMACSigner struct {
	keyring *cryptoDomain.Keyring
}

// NewHMACSigner creates a signer bound to the keyring.
func NewHMACSigner(keyring *cryptoDomain.Keyring) *HMACSigner {
	return &HMACSigner{keyring: keyring}
}

// Sign returns the hex HMAC-SHA256 signature of data.
func (s *HMACSigner) Sign(data string) (string, error) {
	key, err := s.keyring.Dek(cryptoDomain.DekSigning)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether sig is a valid signature of data under the current
// signing key. Fails closed: malformed hex, a missing key, or any mismatch all
// read as invalid.
func (s *HMACSigner) Verify(data, sig string) bool {
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	key, err := s.keyring.Dek(cryptoDomain.DekSigning)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hmac.Equal(provided, mac.Sum(nil))
}
