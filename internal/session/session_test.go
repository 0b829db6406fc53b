package session_test

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/kv"
	"github.com/habitvault/habitvault/internal/session"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type fixture struct {
	keyring  *cryptoDomain.Keyring
	sessions *session.UseCase
}

func newFixture(t *testing.T, clock kv.Clock, ttl time.Duration) *fixture {
	t.Helper()

	boltStore, err := kv.NewBoltStore(filepath.Join(t.TempDir(), "test.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	deks := make(map[cryptoDomain.DekName][]byte)
	for _, name := range cryptoDomain.AllDekNames() {
		key := make([]byte, cryptoDomain.KeySize)
		_, err := rand.Read(key)
		require.NoError(t, err)
		deks[name] = key
	}
	kek := make([]byte, cryptoDomain.KeySize)
	_, err = rand.Read(kek)
	require.NoError(t, err)

	keyring, err := cryptoDomain.NewKeyring(kek, deks)
	require.NoError(t, err)

	store := envelope.NewStore(boltStore, service.NewBlobCipher())
	signer := service.NewHMACSigner(keyring)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		keyring:  keyring,
		sessions: session.NewUseCase(store, keyring, signer, ttl, logger),
	}
}

func TestUseCase_CreateAndResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.RealClock(), time.Hour)
	alice := userDomain.User{Provider: "github", ID: "1001", Email: "alice@example.com"}

	token, err := f.sessions.Create(ctx, alice)
	require.NoError(t, err)

	t.Run("Token is id dot signature", func(t *testing.T) {
		id, sig, found := strings.Cut(token, ".")
		require.True(t, found)
		assert.NotEmpty(t, id)
		assert.Len(t, sig, 64)
	})

	t.Run("Resolve returns the identity", func(t *testing.T) {
		got, found, err := f.sessions.Resolve(ctx, token)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, alice, got)
	})

	t.Run("Guest identity round-trips", func(t *testing.T) {
		guest := userDomain.NewPublicUser("g1")
		guestToken, err := f.sessions.Create(ctx, guest)
		require.NoError(t, err)

		got, found, err := f.sessions.Resolve(ctx, guestToken)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, guest, got)
	})
}

func TestUseCase_ResolveFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.RealClock(), time.Hour)
	alice := userDomain.User{Provider: "github", ID: "1001"}

	token, err := f.sessions.Create(ctx, alice)
	require.NoError(t, err)
	id, sig, _ := strings.Cut(token, ".")

	for name, bad := range map[string]string{
		"empty token":       "",
		"no separator":      id + sig,
		"missing signature": id + ".",
		"missing id":        "." + sig,
		"forged signature":  id + "." + strings.Repeat("0", 64),
		"unknown session":   "ffffffff-0000-7000-8000-000000000000." + sig,
	} {
		t.Run(name, func(t *testing.T) {
			_, found, err := f.sessions.Resolve(ctx, bad)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestUseCase_Destroy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.RealClock(), time.Hour)

	token, err := f.sessions.Create(ctx, userDomain.User{Provider: "github", ID: "1001"})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Destroy(ctx, token))

	_, found, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, found)

	t.Run("Invalid token is a no-op", func(t *testing.T) {
		require.NoError(t, f.sessions.Destroy(ctx, "garbage"))
	})
}

func TestUseCase_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	f := newFixture(t, clock, 30*24*time.Hour)

	token, err := f.sessions.Create(ctx, userDomain.User{Provider: "github", ID: "1001"})
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)

	_, found, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUseCase_SigningRotationInvalidatesTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.RealClock(), time.Hour)

	token, err := f.sessions.Create(ctx, userDomain.User{Provider: "github", ID: "1001"})
	require.NoError(t, err)

	_, found, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, found)

	newKey := make([]byte, cryptoDomain.KeySize)
	_, err = rand.Read(newKey)
	require.NoError(t, err)
	require.NoError(t, f.keyring.SwapDek(cryptoDomain.DekSigning, newKey))

	_, found, err = f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, found)
}
