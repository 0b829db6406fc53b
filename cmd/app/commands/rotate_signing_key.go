package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/habitvault/habitvault/internal/app"
	"github.com/habitvault/habitvault/internal/config"
	cryptoUsecase "github.com/habitvault/habitvault/internal/crypto/usecase"
)

// RunRotateSigningKey rotates the HMAC signing key. All sessions and all guest
// users are invalidated: their tokens were signed or keyed under the retiring
// key and can no longer be trusted. Authenticated user data is untouched.
func RunRotateSigningKey(ctx context.Context, out io.Writer) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("rotating signing key")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	engine, err := container.RotationEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation engine: %w", err)
	}

	report, err := engine.Rotate(ctx, cryptoUsecase.TargetSigningKey)
	if err != nil {
		return fmt.Errorf("failed to rotate signing key: %w", err)
	}

	printReport(out, report)
	return nil
}
