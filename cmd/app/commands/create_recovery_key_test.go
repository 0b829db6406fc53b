package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCreateRecoveryKey(t *testing.T) {
	ctx := context.Background()

	t.Run("prints-the-key-once", func(t *testing.T) {
		setTestEnv(t)
		require.NoError(t, RunInitKeys(ctx, &bytes.Buffer{}))

		var out bytes.Buffer
		err := RunCreateRecoveryKey(ctx, &out, "github", "1001", "alice@example.com")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		require.NotEmpty(t, lines[1])
	})

	t.Run("requires-an-email", func(t *testing.T) {
		setTestEnv(t)
		require.NoError(t, RunInitKeys(ctx, &bytes.Buffer{}))

		err := RunCreateRecoveryKey(ctx, &bytes.Buffer{}, "github", "1001", "")
		require.Error(t, err)
	})
}
