package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/habitvault/habitvault/internal/app"
	"github.com/habitvault/habitvault/internal/config"
	cryptoUsecase "github.com/habitvault/habitvault/internal/crypto/usecase"
)

// RunRotateKek rotates the root Key Encryption Key. Only the key registry is
// re-encrypted; user data stays under its DEKs and is untouched. The freshly
// generated KEK is printed exactly once: the operator installs it as
// CRYPTO_KEK (or the KMS wrapped form when KMS_KEY_URI is set) and restarts
// the process. The retiring KEK stops working the moment this command commits.
func RunRotateKek(ctx context.Context, out io.Writer) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("rotating KEK")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	engine, err := container.RotationEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation engine: %w", err)
	}

	report, err := engine.Rotate(ctx, cryptoUsecase.TargetKEK)
	if err != nil {
		return fmt.Errorf("failed to rotate KEK: %w", err)
	}

	printReport(out, report)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# New KEK. This is the only time it will be displayed.")
	fmt.Fprintf(out, "CRYPTO_KEK=\"%s\"\n", report.NewKeyHex)

	// When a KMS keeper is configured, also print the wrapped form so the
	// plaintext hex never has to land in the environment.
	if cfg.KMSKeyURI != "" {
		newKEK, decodeErr := hex.DecodeString(report.NewKeyHex)
		if decodeErr != nil {
			return fmt.Errorf("failed to decode new KEK: %w", decodeErr)
		}
		wrapped, wrapErr := container.KEKLoader().Wrap(ctx, cfg.KMSKeyURI, newKEK)
		if wrapErr != nil {
			return fmt.Errorf("failed to wrap new KEK via KMS: %w", wrapErr)
		}
		fmt.Fprintf(out, "CRYPTO_KEK_WRAPPED=\"%s\"\n", wrapped)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Update the environment and restart the process to finish the rotation.")

	return nil
}
