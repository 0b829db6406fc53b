// Package recovery implements self-keyed account recovery. A recovery key is a
// random secret handed to the user exactly once; the server stores no copy of
// it. The record that maps the secret back to an account is encrypted under a
// key derived from the secret itself, and filed under a one-way hash of the
// secret, so without the secret the server can neither locate nor read it.
package recovery

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/errors"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
	userUsecase "github.com/habitvault/habitvault/internal/user/usecase"
)

// secretSize is the raw recovery secret length before encoding.
const secretSize = 32

// record is the persisted recovery payload, encrypted under a key derived from
// the recovery secret.
type record struct {
	Provider string `cbor:"1,keyasint"`
	UserID   string `cbor:"2,keyasint"`
	Email    string `cbor:"3,keyasint"`
}

// UseCase creates and consumes recovery keys.
type UseCase struct {
	store   *envelope.Store
	deriver *service.Deriver
	users   *userUsecase.UserUseCase
	logger  *slog.Logger
}

// NewUseCase creates the recovery use case.
func NewUseCase(
	store *envelope.Store,
	deriver *service.Deriver,
	users *userUsecase.UserUseCase,
	logger *slog.Logger,
) *UseCase {
	return &UseCase{
		store:   store,
		deriver: deriver,
		users:   users,
		logger:  logger,
	}
}

// CreateKey mints a recovery key for an authenticated user and returns the
// secret. This is the only time the secret exists server-side; it is never
// persisted or logged. Guest users have no recovery: their data is ephemeral.
func (r *UseCase) CreateKey(ctx context.Context, user userDomain.User) (string, error) {
	if user.Public {
		return "", errors.Wrap(errors.ErrInvalidInput, "recovery keys require an authenticated user")
	}
	if user.Email == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "recovery keys require a verified email")
	}

	raw := make([]byte, secretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate recovery secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	encKey := r.deriver.SecretKey(secret)
	defer cryptoDomain.Zero(encKey)

	path := cryptoDomain.RecoveryPath(r.deriver.LookupIndex(secret))
	rec := record{
		Provider: user.Provider,
		UserID:   user.ID,
		Email:    user.Email,
	}

	if err := envelope.Put(ctx, r.store, path, encKey, rec); err != nil {
		return "", fmt.Errorf("failed to store recovery record: %w", err)
	}

	r.logger.Info("recovery key created")
	return secret, nil
}

// Recover exchanges a recovery secret plus the account email for the user's
// full data export, then wipes the account and consumes the key. The secret
// and email must both match; every failure mode reads as the same not-found
// result, so a caller probing with a stolen secret learns nothing about
// whether the secret was real. A wrong email leaves the record in place.
func (r *UseCase) Recover(ctx context.Context, secret, email string) (userDomain.ExportBundle, bool, error) {
	encKey := r.deriver.SecretKey(secret)
	defer cryptoDomain.Zero(encKey)

	path := cryptoDomain.RecoveryPath(r.deriver.LookupIndex(secret))

	rec, found, err := envelope.Get[record](ctx, r.store, path, encKey)
	if err != nil {
		return userDomain.ExportBundle{}, false, err
	}
	if !found {
		return userDomain.ExportBundle{}, false, nil
	}

	if !strings.EqualFold(strings.TrimSpace(email), rec.Email) {
		return userDomain.ExportBundle{}, false, nil
	}

	user := userDomain.User{
		Provider: rec.Provider,
		ID:       rec.UserID,
		Email:    rec.Email,
	}

	// Export before anything is destroyed. A failed export aborts the whole
	// recovery and leaves both the account and the key intact.
	bundle, err := r.users.ExportData(ctx, user)
	if err != nil {
		return userDomain.ExportBundle{}, false, fmt.Errorf("failed to export account data: %w", err)
	}

	if err := r.users.WipeUser(ctx, user); err != nil {
		return userDomain.ExportBundle{}, false, fmt.Errorf("failed to wipe recovered account: %w", err)
	}

	if err := r.store.Delete(ctx, path); err != nil {
		return userDomain.ExportBundle{}, false, fmt.Errorf("failed to consume recovery key: %w", err)
	}

	r.logger.Info("account recovered and wiped")
	return bundle, true, nil
}
