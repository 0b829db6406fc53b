package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/habitvault/habitvault/internal/app"
	"github.com/habitvault/habitvault/internal/config"
	cryptoUsecase "github.com/habitvault/habitvault/internal/crypto/usecase"
)

// RunRotateDek rotates one of the named data encryption keys in place:
// "user", "settings", "session" or "signing". Re-encryptable records move to
// the new key in the same pass; session and signing rotation invalidate the
// affected sessions instead. The server can keep running; the next boot picks
// up the persisted registry.
func RunRotateDek(ctx context.Context, out io.Writer, targetStr string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	target, err := cryptoUsecase.ParseTarget(targetStr)
	if err != nil {
		return err
	}
	if target == cryptoUsecase.TargetKEK {
		return fmt.Errorf("use the rotate-kek command to rotate the KEK")
	}

	logger.Info("rotating data encryption key", slog.String("target", string(target)))

	engine, err := container.RotationEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation engine: %w", err)
	}

	report, err := engine.Rotate(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to rotate %s key: %w", target, err)
	}

	printReport(out, report)
	return nil
}
