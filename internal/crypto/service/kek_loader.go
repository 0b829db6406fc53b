package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	"github.com/habitvault/habitvault/internal/config"
	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"

	// Register KMS provider drivers for keeper URIs.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KEKLoader loads the root Key Encryption Key at boot. The KEK is either
// supplied directly as hex in CRYPTO_KEK, or — when KMS_KEY_URI is set —
// unwrapped from the CRYPTO_KEK_WRAPPED ciphertext through a gocloud.dev
// secrets keeper (awskms://, gcpkms://, azurekeyvault://, hashivault://,
// base64key:// for local development).
type KEKLoader struct{}

// NewKEKLoader creates a new KEKLoader.
func NewKEKLoader() *KEKLoader {
	return &KEKLoader{}
}

// Load returns the 32-byte KEK or a configuration error. Missing key material
// is fatal at boot; the process must refuse to serve without it.
func (l *KEKLoader) Load(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.KMSKeyURI == "" {
		return cryptoDomain.ParseKEK(cfg.KEKHex)
	}

	if cfg.WrappedKEK == "" {
		return nil, fmt.Errorf("KMS_KEY_URI is set but CRYPTO_KEK_WRAPPED is empty")
	}

	wrapped, err := base64.StdEncoding.DecodeString(cfg.WrappedKEK)
	if err != nil {
		return nil, fmt.Errorf("invalid CRYPTO_KEK_WRAPPED base64: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, cfg.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	kek, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap KEK via KMS: %w", err)
	}
	if len(kek) != cryptoDomain.KeySize {
		cryptoDomain.Zero(kek)
		return nil, fmt.Errorf("%w: unwrapped KEK must be %d bytes", cryptoDomain.ErrInvalidKeySize, cryptoDomain.KeySize)
	}

	return kek, nil
}

// Wrap encrypts freshly generated KEK material with the keeper, for operators
// who store the wrapped blob instead of the plaintext hex. Used by the
// rotate-kek command when a KMS URI is configured.
func (l *KEKLoader) Wrap(ctx context.Context, keeperURI string, kek []byte) (string, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	wrapped, err := keeper.Encrypt(ctx, kek)
	if err != nil {
		return "", fmt.Errorf("failed to wrap KEK via KMS: %w", err)
	}

	return base64.StdEncoding.EncodeToString(wrapped), nil
}
