// Package session implements session lifecycle over the envelope store plus
// signed opaque tokens. A token is "<sessionID>.<signature>"; the signature is
// an HMAC under the rotatable signing key, so rotating that key invalidates
// every outstanding token at once. That is the sole invalidation mechanism
// besides the session record's own TTL.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/kv"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

// record is the persisted session payload, encrypted under the session DEK.
type record struct {
	Provider  string `cbor:"1,keyasint"`
	SubjectID string `cbor:"2,keyasint"`
	Email     string `cbor:"3,keyasint"`
	Public    bool   `cbor:"4,keyasint"`
	CreatedAt int64  `cbor:"5,keyasint"`
}

// UseCase manages sessions. Resolution fails closed: any malformed token, bad
// signature, missing record, or decrypt failure reads as "no user".
type UseCase struct {
	store   *envelope.Store
	keyring *cryptoDomain.Keyring
	signer  service.Signer
	ttl     time.Duration
	logger  *slog.Logger
}

// NewUseCase creates the session use case.
func NewUseCase(
	store *envelope.Store,
	keyring *cryptoDomain.Keyring,
	signer service.Signer,
	ttl time.Duration,
	logger *slog.Logger,
) *UseCase {
	return &UseCase{
		store:   store,
		keyring: keyring,
		signer:  signer,
		ttl:     ttl,
		logger:  logger,
	}
}

// Create opens a session for the given identity and returns the signed token.
func (s *UseCase) Create(ctx context.Context, user userDomain.User) (string, error) {
	sessionDek, err := s.keyring.Dek(cryptoDomain.DekSession)
	if err != nil {
		return "", err
	}

	id := uuid.Must(uuid.NewV7()).String()
	rec := record{
		Provider:  user.Provider,
		SubjectID: user.ID,
		Email:     user.Email,
		Public:    user.Public,
		CreatedAt: time.Now().UTC().Unix(),
	}

	err = envelope.Put(ctx, s.store, cryptoDomain.SessionPath(id), sessionDek, rec, kv.WithTTL(s.ttl))
	if err != nil {
		return "", err
	}

	sig, err := s.signer.Sign(id)
	if err != nil {
		return "", err
	}

	return id + "." + sig, nil
}

// Resolve returns the identity behind a token, or false for anything invalid.
func (s *UseCase) Resolve(ctx context.Context, token string) (userDomain.User, bool, error) {
	id, ok := s.verify(token)
	if !ok {
		return userDomain.User{}, false, nil
	}

	sessionDek, err := s.keyring.Dek(cryptoDomain.DekSession)
	if err != nil {
		return userDomain.User{}, false, err
	}

	rec, found, err := envelope.Get[record](ctx, s.store, cryptoDomain.SessionPath(id), sessionDek)
	if err != nil || !found {
		return userDomain.User{}, false, err
	}

	return userDomain.User{
		Provider: rec.Provider,
		ID:       rec.SubjectID,
		Email:    rec.Email,
		Public:   rec.Public,
	}, true, nil
}

// Destroy deletes the session behind a valid token. Invalid tokens are a
// no-op: there is nothing to destroy that the caller could have held.
func (s *UseCase) Destroy(ctx context.Context, token string) error {
	id, ok := s.verify(token)
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, cryptoDomain.SessionPath(id))
}

// verify splits and checks a token, returning the session id.
func (s *UseCase) verify(token string) (string, bool) {
	id, sig, found := strings.Cut(token, ".")
	if !found || id == "" {
		return "", false
	}
	if !s.signer.Verify(id, sig) {
		return "", false
	}
	return id, true
}
