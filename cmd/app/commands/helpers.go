// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/habitvault/habitvault/internal/app"
	cryptoUsecase "github.com/habitvault/habitvault/internal/crypto/usecase"
)

// DefaultWriter returns the writer commands print to outside of tests.
func DefaultWriter() io.Writer {
	return os.Stdout
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// printReport writes a human-readable rotation summary.
func printReport(out io.Writer, report *cryptoUsecase.Report) {
	fmt.Fprintf(out, "Rotation target:  %s\n", report.Target)
	fmt.Fprintf(out, "State:            %s\n", report.State)
	fmt.Fprintf(out, "Re-encrypted:     %d\n", report.ReEncrypted)
	fmt.Fprintf(out, "Deleted:          %d\n", report.Deleted)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped (unreadable under the retiring key, left in place):\n")
		for _, path := range report.Skipped {
			fmt.Fprintf(out, "  - %s\n", path)
		}
	}
}
