package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()

	kek := make([]byte, 32)
	_, err := rand.Read(kek)
	require.NoError(t, err)

	t.Setenv("DATA_PATH", filepath.Join(t.TempDir(), "test.db"))
	t.Setenv("CRYPTO_KEK", hex.EncodeToString(kek))
	t.Setenv("CRYPTO_DATA_DERIVE_SALT", "test-salt")
	t.Setenv("CRYPTO_DATA_DERIVE_ITERATIONS", "1000")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRunInitKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		setTestEnv(t)

		var out bytes.Buffer
		err := RunInitKeys(ctx, &out)
		require.NoError(t, err)
		require.Contains(t, out.String(), "Key registry initialized")
	})

	t.Run("refuses-to-overwrite-existing-registry", func(t *testing.T) {
		setTestEnv(t)

		require.NoError(t, RunInitKeys(ctx, &bytes.Buffer{}))

		err := RunInitKeys(ctx, &bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("missing-kek", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("CRYPTO_KEK", "")

		err := RunInitKeys(ctx, &bytes.Buffer{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load KEK")
	})
}
