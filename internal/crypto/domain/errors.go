package domain

import (
	"github.com/habitvault/habitvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrKEKNotSet indicates the root Key Encryption Key was not supplied.
	// The process must refuse to serve traffic without it.
	ErrKEKNotSet = errors.New("CRYPTO_KEK is not set")

	// ErrInvalidKEKEncoding indicates the KEK is not valid hex.
	ErrInvalidKEKEncoding = errors.Wrap(errors.ErrInvalidInput, "KEK must be hex-encoded")

	// ErrInvalidKeySize indicates a symmetric key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDekNotFound indicates the named DEK is missing from the keyring.
	ErrDekNotFound = errors.Wrap(errors.ErrNotFound, "dek not found")

	// ErrDecryptionFailed indicates a decryption operation failed: wrong key,
	// tampered ciphertext, or a truncated blob. The specific cause is not
	// disclosed to avoid information leakage.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrRegistryNotInitialized indicates the encrypted DEK registry does not
	// exist or cannot be decrypted with the configured KEK. Fatal at boot.
	ErrRegistryNotInitialized = errors.New("key registry is not initialized or KEK is wrong")

	// ErrKeyProvisioningFailed indicates lazy uuDEK generation failed after the
	// single allowed retry. It is a sentinel, never retried further.
	ErrKeyProvisioningFailed = errors.New("user key provisioning failed after retry")

	// ErrUnsupportedTarget indicates an unknown rotation target.
	ErrUnsupportedTarget = errors.Wrap(errors.ErrInvalidInput, "unsupported rotation target")
)
