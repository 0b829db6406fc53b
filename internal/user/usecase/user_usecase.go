// Package usecase implements user-scoped data access: key derivation, lazy
// uuDEK provisioning, and every read/write of settings, habit content, and
// daily entries through the envelope store.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/kv"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

// userKeyRecord wraps a uuDEK for storage under the user DEK.
type userKeyRecord struct {
	Key []byte `cbor:"1,keyasint"`
}

// entriesRecord wraps one day's entries for storage under the uuDEK.
type entriesRecord struct {
	Entries []userDomain.Entry `cbor:"1,keyasint"`
}

// UserUseCase mediates all user-scoped data access. Within one request the
// order is strict: derive key → load uuDEK → decrypt → use → re-encrypt →
// write; nothing here writes in parallel to the same logical path.
type UserUseCase struct {
	store     *envelope.Store
	cipher    service.Cipher
	deriver   *service.Deriver
	keyring   *cryptoDomain.Keyring
	publicTTL time.Duration
	logger    *slog.Logger
}

// NewUserUseCase creates the user data access use case.
func NewUserUseCase(
	store *envelope.Store,
	cipher service.Cipher,
	deriver *service.Deriver,
	keyring *cryptoDomain.Keyring,
	publicTTL time.Duration,
	logger *slog.Logger,
) *UserUseCase {
	return &UserUseCase{
		store:     store,
		cipher:    cipher,
		deriver:   deriver,
		keyring:   keyring,
		publicTTL: publicTTL,
		logger:    logger,
	}
}

// DeriveKey returns the deterministic storage key scoping all of this user's
// data.
func (u *UserUseCase) DeriveKey(user userDomain.User) string {
	if user.Public {
		return u.deriver.PublicUserKey(user.ID)
	}
	return u.deriver.UserKey(user.Provider, user.ID)
}

// GetOrCreateUserDEK returns the user's uuDEK, generating and persisting it on
// first access. The write is read back before being trusted; the
// generate-persist-reread cycle retries exactly once, then fails with
// ErrKeyProvisioningFailed rather than recursing.
func (u *UserUseCase) GetOrCreateUserDEK(ctx context.Context, user userDomain.User) ([]byte, error) {
	userDek, err := u.keyring.Dek(cryptoDomain.DekUser)
	if err != nil {
		return nil, err
	}

	path := cryptoDomain.UserKeyPath(u.DeriveKey(user))

	record, found, err := envelope.Get[userKeyRecord](ctx, u.store, path, userDek)
	if err != nil {
		return nil, err
	}
	if found {
		return record.Key, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		key, err := u.cipher.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate user key: %w", err)
		}

		if err := envelope.Put(ctx, u.store, path, userDek, userKeyRecord{Key: key}, u.ttlOpts(user)...); err != nil {
			return nil, err
		}

		// Read-after-write: the stored copy is the one we trust.
		record, found, err = envelope.Get[userKeyRecord](ctx, u.store, path, userDek)
		if err != nil {
			return nil, err
		}
		if found {
			return record.Key, nil
		}

		u.logger.Warn("user key write not readable, retrying once",
			slog.Int("attempt", attempt+1),
		)
	}

	return nil, cryptoDomain.ErrKeyProvisioningFailed
}

// GetSettings reads the user's settings. Absent (or undecryptable) settings
// read as not-found; callers fall back to defaults.
func (u *UserUseCase) GetSettings(ctx context.Context, user userDomain.User) (userDomain.Settings, bool, error) {
	settingsDek, err := u.keyring.Dek(cryptoDomain.DekSettings)
	if err != nil {
		return userDomain.Settings{}, false, err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "settings")
	return envelope.Get[userDomain.Settings](ctx, u.store, path, settingsDek)
}

// SaveSettings writes the user's settings under the settings DEK.
func (u *UserUseCase) SaveSettings(ctx context.Context, user userDomain.User, settings userDomain.Settings) error {
	settingsDek, err := u.keyring.Dek(cryptoDomain.DekSettings)
	if err != nil {
		return err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "settings")
	return envelope.Put(ctx, u.store, path, settingsDek, settings, u.ttlOpts(user)...)
}

// GetContent reads the user's habit configuration under the uuDEK.
func (u *UserUseCase) GetContent(ctx context.Context, user userDomain.User) (userDomain.ContentConfig, bool, error) {
	key, err := u.GetOrCreateUserDEK(ctx, user)
	if err != nil {
		return userDomain.ContentConfig{}, false, err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "content")
	return envelope.Get[userDomain.ContentConfig](ctx, u.store, path, key)
}

// SaveContent writes the user's habit configuration under the uuDEK.
func (u *UserUseCase) SaveContent(ctx context.Context, user userDomain.User, content userDomain.ContentConfig) error {
	key, err := u.GetOrCreateUserDEK(ctx, user)
	if err != nil {
		return err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "content")
	return envelope.Put(ctx, u.store, path, key, content, u.ttlOpts(user)...)
}

// SaveEntries writes one day's entries under the uuDEK. Date is "2006-01-02".
func (u *UserUseCase) SaveEntries(ctx context.Context, user userDomain.User, date string, entries []userDomain.Entry) error {
	key, err := u.GetOrCreateUserDEK(ctx, user)
	if err != nil {
		return err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "entries/"+date)
	return envelope.Put(ctx, u.store, path, key, entriesRecord{Entries: entries}, u.ttlOpts(user)...)
}

// GetEntries reads one day's entries.
func (u *UserUseCase) GetEntries(ctx context.Context, user userDomain.User, date string) ([]userDomain.Entry, bool, error) {
	key, err := u.GetOrCreateUserDEK(ctx, user)
	if err != nil {
		return nil, false, err
	}

	path := cryptoDomain.UserRecordPath(u.DeriveKey(user), "entries/"+date)
	record, found, err := envelope.Get[entriesRecord](ctx, u.store, path, key)
	if err != nil || !found {
		return nil, found, err
	}
	return record.Entries, true, nil
}

// ListEntries reads the user's full entry history, keyed by date.
func (u *UserUseCase) ListEntries(ctx context.Context, user userDomain.User) (map[string][]userDomain.Entry, error) {
	key, err := u.GetOrCreateUserDEK(ctx, user)
	if err != nil {
		return nil, err
	}

	userKey := u.DeriveKey(user)
	prefix := cryptoDomain.UserRecordPath(userKey, "entries/")

	paths, err := u.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]userDomain.Entry, len(paths))
	for _, path := range paths {
		record, found, err := envelope.Get[entriesRecord](ctx, u.store, path, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		date := strings.TrimPrefix(path, prefix)
		entries[date] = record.Entries
	}

	return entries, nil
}

// ExportData assembles the user's full readable data bundle.
func (u *UserUseCase) ExportData(ctx context.Context, user userDomain.User) (userDomain.ExportBundle, error) {
	settings, _, err := u.GetSettings(ctx, user)
	if err != nil {
		return userDomain.ExportBundle{}, err
	}

	content, _, err := u.GetContent(ctx, user)
	if err != nil {
		return userDomain.ExportBundle{}, err
	}

	entries, err := u.ListEntries(ctx, user)
	if err != nil {
		return userDomain.ExportBundle{}, err
	}

	return userDomain.ExportBundle{
		Settings: settings,
		Content:  content,
		Entries:  entries,
	}, nil
}

// WipeUser permanently deletes every record in the user's scope plus the
// user's uuDEK path. Irrevocable.
func (u *UserUseCase) WipeUser(ctx context.Context, user userDomain.User) error {
	userKey := u.DeriveKey(user)

	deleted, err := u.store.DeletePrefix(ctx, cryptoDomain.UserScopePrefix(userKey))
	if err != nil {
		return fmt.Errorf("failed to wipe user records: %w", err)
	}

	if err := u.store.Delete(ctx, cryptoDomain.UserKeyPath(userKey)); err != nil {
		return fmt.Errorf("failed to delete user key: %w", err)
	}

	u.logger.Info("user data wiped", slog.Int("records_deleted", deleted))
	return nil
}

// ttlOpts returns the TTL option for guest scopes; authenticated user data has
// no expiry.
func (u *UserUseCase) ttlOpts(user userDomain.User) []kv.Option {
	if user.Public && u.publicTTL > 0 {
		return []kv.Option{kv.WithTTL(u.publicTTL)}
	}
	return nil
}
