package domain_test

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitvault/habitvault/internal/crypto/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, domain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func fullDekSet(t *testing.T) map[domain.DekName][]byte {
	t.Helper()
	deks := make(map[domain.DekName][]byte)
	for _, name := range domain.AllDekNames() {
		deks[name] = randomKey(t)
	}
	return deks
}

func TestNewKeyring(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		kek := randomKey(t)
		deks := fullDekSet(t)

		kr, err := domain.NewKeyring(kek, deks)
		require.NoError(t, err)

		assert.Equal(t, kek, kr.KEK())
		for _, name := range domain.AllDekNames() {
			key, err := kr.Dek(name)
			require.NoError(t, err)
			assert.Equal(t, deks[name], key)
		}
	})

	t.Run("Missing DEK", func(t *testing.T) {
		deks := fullDekSet(t)
		delete(deks, domain.DekSigning)

		_, err := domain.NewKeyring(randomKey(t), deks)
		assert.ErrorIs(t, err, domain.ErrDekNotFound)
	})

	t.Run("Wrong key size", func(t *testing.T) {
		deks := fullDekSet(t)
		deks[domain.DekUser] = []byte("short")

		_, err := domain.NewKeyring(randomKey(t), deks)
		assert.ErrorIs(t, err, domain.ErrInvalidKeySize)
	})

	t.Run("Keyring copies caller slices", func(t *testing.T) {
		kek := randomKey(t)
		deks := fullDekSet(t)
		kr, err := domain.NewKeyring(kek, deks)
		require.NoError(t, err)

		domain.Zero(deks[domain.DekUser])

		key, err := kr.Dek(domain.DekUser)
		require.NoError(t, err)
		assert.NotEqual(t, make([]byte, domain.KeySize), key)
	})
}

func TestKeyring_SwapDek(t *testing.T) {
	kr, err := domain.NewKeyring(randomKey(t), fullDekSet(t))
	require.NoError(t, err)

	t.Run("Swap replaces only the named key", func(t *testing.T) {
		before, err := kr.Dek(domain.DekSettings)
		require.NoError(t, err)
		sessionBefore, err := kr.Dek(domain.DekSession)
		require.NoError(t, err)

		newKey := randomKey(t)
		require.NoError(t, kr.SwapDek(domain.DekSettings, newKey))

		after, err := kr.Dek(domain.DekSettings)
		require.NoError(t, err)
		assert.Equal(t, newKey, after)
		assert.NotEqual(t, before, after)

		sessionAfter, err := kr.Dek(domain.DekSession)
		require.NoError(t, err)
		assert.Equal(t, sessionBefore, sessionAfter)
	})

	t.Run("Unknown name rejected", func(t *testing.T) {
		err := kr.SwapDek(domain.DekName("bogus"), randomKey(t))
		assert.ErrorIs(t, err, domain.ErrDekNotFound)
	})

	t.Run("Wrong size rejected", func(t *testing.T) {
		err := kr.SwapDek(domain.DekUser, []byte("short"))
		assert.ErrorIs(t, err, domain.ErrInvalidKeySize)
	})

	t.Run("Held key survives the swap", func(t *testing.T) {
		held, err := kr.Dek(domain.DekSettings)
		require.NoError(t, err)
		heldCopy := append([]byte(nil), held...)

		require.NoError(t, kr.SwapDek(domain.DekSettings, randomKey(t)))

		// A reader that fetched the key before the swap keeps working with
		// intact material.
		assert.Equal(t, heldCopy, held)
		assert.NotEqual(t, make([]byte, domain.KeySize), held)
	})

	t.Run("Returned key is a copy", func(t *testing.T) {
		key, err := kr.Dek(domain.DekUser)
		require.NoError(t, err)
		domain.Zero(key)

		again, err := kr.Dek(domain.DekUser)
		require.NoError(t, err)
		assert.NotEqual(t, make([]byte, domain.KeySize), again)
	})
}

func TestKeyring_SwapKEK(t *testing.T) {
	kr, err := domain.NewKeyring(randomKey(t), fullDekSet(t))
	require.NoError(t, err)

	userDekBefore, err := kr.Dek(domain.DekUser)
	require.NoError(t, err)

	newKEK := randomKey(t)
	require.NoError(t, kr.SwapKEK(newKEK))

	assert.Equal(t, newKEK, kr.KEK())

	// DEKs survive KEK rotation untouched.
	userDekAfter, err := kr.Dek(domain.DekUser)
	require.NoError(t, err)
	assert.Equal(t, userDekBefore, userDekAfter)
}

func TestKeyring_SwapKEK_HeldKeySurvives(t *testing.T) {
	kek := randomKey(t)
	kr, err := domain.NewKeyring(kek, fullDekSet(t))
	require.NoError(t, err)

	held := kr.KEK()
	require.NoError(t, kr.SwapKEK(randomKey(t)))

	assert.Equal(t, kek, held)
	assert.NotEqual(t, kek, kr.KEK())
}

func TestParseKEK(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		raw := randomKey(t)
		kek, err := domain.ParseKEK(hex.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, kek)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := domain.ParseKEK("")
		assert.ErrorIs(t, err, domain.ErrKEKNotSet)
	})

	t.Run("Not hex", func(t *testing.T) {
		_, err := domain.ParseKEK("zz")
		assert.ErrorIs(t, err, domain.ErrInvalidKEKEncoding)
	})

	t.Run("Wrong length", func(t *testing.T) {
		_, err := domain.ParseKEK("deadbeef")
		assert.ErrorIs(t, err, domain.ErrInvalidKeySize)
	})
}
