package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/habitvault/habitvault/internal/app"
	"github.com/habitvault/habitvault/internal/config"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

// RunCreateRecoveryKey mints a recovery key for an existing user out of band,
// for support cases where the user can no longer sign in through their
// provider. The key is printed exactly once and recovery still requires the
// matching account email.
func RunCreateRecoveryKey(ctx context.Context, out io.Writer, provider, id, email string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	recoveryUseCase, err := container.RecoveryUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize recovery use case: %w", err)
	}

	user := userDomain.User{Provider: provider, ID: id, Email: email}
	secret, err := recoveryUseCase.CreateKey(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create recovery key: %w", err)
	}

	logger.Info("recovery key created", slog.String("provider", provider))
	fmt.Fprintln(out, "# Recovery key. This is the only time it will be displayed.")
	fmt.Fprintln(out, secret)

	return nil
}
