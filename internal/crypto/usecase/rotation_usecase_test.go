package usecase_test

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/crypto/usecase"
	"github.com/habitvault/habitvault/internal/kv"
)

// testRecord is a minimal encrypted payload for rotation tests.
type testRecord struct {
	V string `cbor:"1,keyasint"`
}

// wrappedKey mirrors the stored shape of a per-user key record.
type wrappedKey struct {
	Key []byte `cbor:"1,keyasint"`
}

type engineFixture struct {
	*fixture
	kek       []byte
	keyring   *cryptoDomain.Keyring
	keyringUC *usecase.KeyringUseCase
	engine    *usecase.Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := newFixture(t)
	keyringUC := usecase.NewKeyringUseCase(f.kv, f.store, f.cipher)

	kek := randomKey(t)
	keyring, err := keyringUC.Init(context.Background(), kek)
	require.NoError(t, err)

	return &engineFixture{
		fixture:   f,
		kek:       kek,
		keyring:   keyring,
		keyringUC: keyringUC,
		engine:    usecase.NewEngine(f.kv, f.cipher, keyring, keyringUC, f.logger),
	}
}

// dek returns a stable copy of the named key's current material.
func (f *engineFixture) dek(t *testing.T, name cryptoDomain.DekName) []byte {
	t.Helper()
	key, err := f.keyring.Dek(name)
	require.NoError(t, err)
	return append([]byte(nil), key...)
}

func TestParseTarget(t *testing.T) {
	for _, name := range []string{"user", "settings", "session", "signing", "kek"} {
		target, err := usecase.ParseTarget(name)
		require.NoError(t, err)
		assert.Equal(t, usecase.Target(name), target)
	}

	_, err := usecase.ParseTarget("everything")
	assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedTarget)
}

func TestEngine_RotateSettings(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	oldKey := f.dek(t, cryptoDomain.DekSettings)

	paths := []string{
		cryptoDomain.UserRecordPath("u1", "settings"),
		cryptoDomain.UserRecordPath("u2", "settings"),
		cryptoDomain.UserRecordPath("u3", "settings"),
	}
	for _, path := range paths {
		require.NoError(t, envelope.Put(ctx, f.store, path, oldKey, testRecord{V: path}))
	}

	// Content lives under a uuDEK and must not be touched by settings rotation.
	contentKey := randomKey(t)
	contentPath := cryptoDomain.UserRecordPath("u1", "content")
	require.NoError(t, envelope.Put(ctx, f.store, contentPath, contentKey, testRecord{V: "content"}))
	contentBlob, _, err := f.kv.Get(ctx, contentPath)
	require.NoError(t, err)

	report, err := f.engine.Rotate(ctx, usecase.TargetSettingsDek)
	require.NoError(t, err)

	t.Run("Report reflects the committed rotation", func(t *testing.T) {
		assert.Equal(t, usecase.StateCommitted, report.State)
		assert.Equal(t, 3, report.ReEncrypted)
		assert.Empty(t, report.Skipped)
		assert.Len(t, report.NewKeyHex, 64)
		assert.False(t, report.RestartRequired)
	})

	t.Run("Records readable under the new key only", func(t *testing.T) {
		newKey := f.dek(t, cryptoDomain.DekSettings)
		require.NotEqual(t, oldKey, newKey)

		for _, path := range paths {
			record, found, err := envelope.Get[testRecord](ctx, f.store, path, newKey)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, path, record.V)

			_, found, err = envelope.Get[testRecord](ctx, f.store, path, oldKey)
			require.NoError(t, err)
			assert.False(t, found)
		}
	})

	t.Run("New key is persisted in the registry", func(t *testing.T) {
		reloaded, err := f.keyringUC.Load(ctx, f.kek)
		require.NoError(t, err)
		key, err := reloaded.Dek(cryptoDomain.DekSettings)
		require.NoError(t, err)
		assert.Equal(t, f.dek(t, cryptoDomain.DekSettings), key)
	})

	t.Run("Records outside the scope are untouched", func(t *testing.T) {
		blob, found, err := f.kv.Get(ctx, contentPath)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, contentBlob, blob)
	})
}

func TestEngine_RotateSettings_SkipsUndecryptable(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	oldKey := f.dek(t, cryptoDomain.DekSettings)

	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.UserRecordPath("u1", "settings"), oldKey, testRecord{V: "a"}))
	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.UserRecordPath("u2", "settings"), oldKey, testRecord{V: "b"}))

	// A record sealed under a foreign key cannot follow the rotation.
	corruptPath := cryptoDomain.UserRecordPath("ux", "settings")
	require.NoError(t, envelope.Put(ctx, f.store, corruptPath, randomKey(t), testRecord{V: "x"}))

	report, err := f.engine.Rotate(ctx, usecase.TargetSettingsDek)
	require.NoError(t, err)

	assert.Equal(t, usecase.StateCommitted, report.State)
	assert.Equal(t, 2, report.ReEncrypted)
	assert.Equal(t, []string{corruptPath}, report.Skipped)
}

func TestEngine_RotateUserDek(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	oldKey := f.dek(t, cryptoDomain.DekUser)

	uuDeks := map[string][]byte{
		"a": randomKey(t),
		"b": randomKey(t),
	}
	for userKey, uuDek := range uuDeks {
		path := cryptoDomain.UserKeyPath(userKey)
		require.NoError(t, envelope.Put(ctx, f.store, path, oldKey, wrappedKey{Key: uuDek}))
	}

	report, err := f.engine.Rotate(ctx, usecase.TargetUserDek)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateCommitted, report.State)
	assert.Equal(t, 2, report.ReEncrypted)

	t.Run("The uuDEKs are rewrapped, not replaced", func(t *testing.T) {
		newKey := f.dek(t, cryptoDomain.DekUser)
		for userKey, uuDek := range uuDeks {
			record, found, err := envelope.Get[wrappedKey](ctx, f.store, cryptoDomain.UserKeyPath(userKey), newKey)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, uuDek, record.Key)
		}
	})
}

func TestEngine_RotateSession(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	sessionKey := f.dek(t, cryptoDomain.DekSession)

	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.SessionPath("s1"), sessionKey, testRecord{V: "s1"}))
	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.SessionPath("s2"), sessionKey, testRecord{V: "s2"}))

	report, err := f.engine.Rotate(ctx, usecase.TargetSessionDek)
	require.NoError(t, err)

	assert.Equal(t, usecase.StateCommitted, report.State)
	assert.Equal(t, 2, report.Deleted)
	assert.Zero(t, report.ReEncrypted)

	keys, err := f.kv.Keys(ctx, cryptoDomain.PathSessionPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestEngine_RotateSigning(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	sessionKey := f.dek(t, cryptoDomain.DekSession)
	settingsKey := f.dek(t, cryptoDomain.DekSettings)
	userKey := f.dek(t, cryptoDomain.DekUser)

	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.SessionPath("s1"), sessionKey, testRecord{V: "s1"}))
	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.UserRecordPath("public_g1", "settings"), settingsKey, testRecord{V: "g"}))
	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.UserKeyPath("public_g1"), userKey, wrappedKey{Key: randomKey(t)}))

	authSettings := cryptoDomain.UserRecordPath("deadbeef", "settings")
	authKeyPath := cryptoDomain.UserKeyPath("deadbeef")
	require.NoError(t, envelope.Put(ctx, f.store, authSettings, settingsKey, testRecord{V: "auth"}))
	require.NoError(t, envelope.Put(ctx, f.store, authKeyPath, userKey, wrappedKey{Key: randomKey(t)}))

	oldSigning := f.dek(t, cryptoDomain.DekSigning)

	report, err := f.engine.Rotate(ctx, usecase.TargetSigningKey)
	require.NoError(t, err)

	t.Run("Sessions and guest scopes are discarded", func(t *testing.T) {
		assert.Equal(t, usecase.StateCommitted, report.State)
		assert.Equal(t, 3, report.Deleted)

		keys, err := f.kv.Keys(ctx, cryptoDomain.PathSessionPrefix)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Authenticated user data survives", func(t *testing.T) {
		_, found, err := f.kv.Get(ctx, authSettings)
		require.NoError(t, err)
		assert.True(t, found)

		_, found, err = f.kv.Get(ctx, authKeyPath)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Signing key changed and persisted", func(t *testing.T) {
		newSigning := f.dek(t, cryptoDomain.DekSigning)
		assert.NotEqual(t, oldSigning, newSigning)

		reloaded, err := f.keyringUC.Load(ctx, f.kek)
		require.NoError(t, err)
		key, err := reloaded.Dek(cryptoDomain.DekSigning)
		require.NoError(t, err)
		assert.Equal(t, newSigning, key)
	})
}

func TestEngine_RotateKEK(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	deksBefore := f.keyring.Deks()

	report, err := f.engine.Rotate(ctx, usecase.TargetKEK)
	require.NoError(t, err)

	t.Run("Report demands a restart and surfaces the new KEK", func(t *testing.T) {
		assert.Equal(t, usecase.StateCommitted, report.State)
		assert.True(t, report.RestartRequired)

		decoded, err := hex.DecodeString(report.NewKeyHex)
		require.NoError(t, err)
		assert.Len(t, decoded, cryptoDomain.KeySize)
	})

	t.Run("Registry reloads under the new KEK with DEKs intact", func(t *testing.T) {
		newKEK, err := hex.DecodeString(report.NewKeyHex)
		require.NoError(t, err)

		reloaded, err := f.keyringUC.Load(ctx, newKEK)
		require.NoError(t, err)
		for name, want := range deksBefore {
			got, err := reloaded.Dek(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("The old KEK no longer opens the registry", func(t *testing.T) {
		_, err := f.keyringUC.Load(ctx, f.kek)
		assert.ErrorIs(t, err, cryptoDomain.ErrRegistryNotInitialized)
	})
}

func TestEngine_RotateBatch(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	sessionKey := f.dek(t, cryptoDomain.DekSession)
	settingsKey := f.dek(t, cryptoDomain.DekSettings)

	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.SessionPath("s1"), sessionKey, testRecord{V: "s1"}))
	require.NoError(t, envelope.Put(ctx, f.store, cryptoDomain.UserRecordPath("u1", "settings"), settingsKey, testRecord{V: "a"}))

	reports, err := f.engine.RotateBatch(ctx, []usecase.Target{
		usecase.TargetSettingsDek,
		usecase.TargetSessionDek,
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, usecase.StateCommitted, reports[0].State)
	assert.Equal(t, 1, reports[0].ReEncrypted)
	assert.Equal(t, usecase.StateCommitted, reports[1].State)
	assert.Equal(t, 1, reports[1].Deleted)
}

// stepClock is an adjustable clock for expiry behavior under rotation.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEngine_RotateSettings_KeepsRecordExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	boltStore, err := kv.NewBoltStore(filepath.Join(t.TempDir(), "test.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	cipher := service.NewBlobCipher()
	store := envelope.NewStore(boltStore, cipher)
	keyringUC := usecase.NewKeyringUseCase(boltStore, store, cipher)
	keyring, err := keyringUC.Init(ctx, randomKey(t))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := usecase.NewEngine(boltStore, cipher, keyring, keyringUC, logger)

	oldKey, err := keyring.Dek(cryptoDomain.DekSettings)
	require.NoError(t, err)

	guestPath := cryptoDomain.UserRecordPath("public_g1", "settings")
	require.NoError(t, envelope.Put(ctx, store, guestPath, oldKey, testRecord{V: "guest"},
		kv.WithTTL(14*24*time.Hour)))
	durablePath := cryptoDomain.UserRecordPath("u1", "settings")
	require.NoError(t, envelope.Put(ctx, store, durablePath, oldKey, testRecord{V: "durable"}))

	report, err := engine.Rotate(ctx, usecase.TargetSettingsDek)
	require.NoError(t, err)
	require.Equal(t, usecase.StateCommitted, report.State)
	require.Equal(t, 2, report.ReEncrypted)

	newKey, err := keyring.Dek(cryptoDomain.DekSettings)
	require.NoError(t, err)

	t.Run("Guest record readable under the new key before expiry", func(t *testing.T) {
		record, found, err := envelope.Get[testRecord](ctx, store, guestPath, newKey)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "guest", record.V)
	})

	t.Run("Guest record still expires on its original schedule", func(t *testing.T) {
		clock.Advance(15 * 24 * time.Hour)

		_, found, err := envelope.Get[testRecord](ctx, store, guestPath, newKey)
		require.NoError(t, err)
		assert.False(t, found)

		record, found, err := envelope.Get[testRecord](ctx, store, durablePath, newKey)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "durable", record.V)
	})
}
