package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/habitvault/habitvault/internal/app"
	"github.com/habitvault/habitvault/internal/config"
)

// RunInitKeys generates the full set of data encryption keys and persists the
// encrypted key registry to the data file. Requires CRYPTO_KEK (or the KMS
// wrapped form) to be set. Refuses to run against a store that already holds
// a registry.
//
// This is a one-time setup step per data file; the server will not boot
// without an initialized registry.
func RunInitKeys(ctx context.Context, out io.Writer) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	kek, err := container.KEK()
	if err != nil {
		return fmt.Errorf("failed to load KEK: %w", err)
	}

	keyringUseCase, err := container.KeyringUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize keyring use case: %w", err)
	}

	keyring, err := keyringUseCase.Init(ctx, kek)
	if err != nil {
		return fmt.Errorf("failed to initialize key registry: %w", err)
	}
	defer keyring.Close()

	logger.Info("key registry initialized")
	fmt.Fprintln(out, "Key registry initialized.")
	fmt.Fprintln(out, "All data encryption keys were generated and stored encrypted under the KEK.")
	fmt.Fprintln(out, "Keep CRYPTO_KEK safe: without it the data file is unreadable.")

	return nil
}
