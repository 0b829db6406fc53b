package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
)

// Deriver implements the deterministic derivation paths: user storage keys,
// secret-string encryption keys (PBKDF2), and recovery lookup indexes.
type Deriver struct {
	salt       []byte
	iterations int
}

// NewDeriver creates a Deriver with the configured salt and PBKDF2 iteration
// count (CRYPTO_DATA_DERIVE_SALT / CRYPTO_DATA_DERIVE_ITERATIONS).
func NewDeriver(salt string, iterations int) *Deriver {
	return &Deriver{
		salt:       []byte(salt),
		iterations: iterations,
	}
}

// UserKey derives the storage key for an authenticated user: a hex keyed hash
// of "<provider>_<id>". One-way, so raw provider ids never appear in storage
// paths, and deterministic, so the same user always maps to the same scope.
func (d *Deriver) UserKey(provider, id string) string {
	mac := hmac.New(sha256.New, d.salt)
	mac.Write([]byte(provider + "_" + id))
	return hex.EncodeToString(mac.Sum(nil))
}

// PublicUserKey derives the storage key for a guest user. Intentionally not
// hashed: guest data is ephemeral and TTL-bound, and the "public_" prefix is
// what lets rotation and cleanup find all guest scopes with one prefix scan.
// The lower collision resistance is an accepted property, not an oversight.
func (d *Deriver) PublicUserKey(id string) string {
	return "public_" + id
}

// SecretKey stretches a caller-held secret string (e.g. a raw recovery key)
// into a 32-byte encryption key with PBKDF2-SHA256.
func (d *Deriver) SecretKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), d.salt, d.iterations, cryptoDomain.KeySize, sha256.New)
}

// LookupIndex derives the storage index for a secret: a plain BLAKE3 hash of
// the secret, hex-encoded. One-way, so the stored index never reveals the
// secret, yet anyone holding the secret can recompute where its record lives.
func (d *Deriver) LookupIndex(secret string) string {
	sum := blake3.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
