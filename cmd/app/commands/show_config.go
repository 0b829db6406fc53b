package commands

import (
	"fmt"
	"io"

	"github.com/habitvault/habitvault/internal/config"
)

// RunShowConfig prints the effective configuration with secrets redacted.
// Useful for checking what the process would boot with after .env discovery.
func RunShowConfig(out io.Writer) error {
	cfg := config.Load()

	fmt.Fprintf(out, "SERVER_HOST=%s\n", cfg.ServerHost)
	fmt.Fprintf(out, "SERVER_PORT=%d\n", cfg.ServerPort)
	fmt.Fprintf(out, "SHUTDOWN_TIMEOUT=%s\n", cfg.ShutdownTimeout)
	fmt.Fprintf(out, "DATA_PATH=%s\n", cfg.DataPath)
	fmt.Fprintf(out, "LOG_LEVEL=%s\n", cfg.LogLevel)
	fmt.Fprintf(out, "CRYPTO_KEK=%s\n", redact(cfg.KEKHex))
	fmt.Fprintf(out, "KMS_KEY_URI=%s\n", cfg.KMSKeyURI)
	fmt.Fprintf(out, "CRYPTO_KEK_WRAPPED=%s\n", redact(cfg.WrappedKEK))
	fmt.Fprintf(out, "CRYPTO_DATA_DERIVE_SALT=%s\n", redact(cfg.DeriveSalt))
	fmt.Fprintf(out, "CRYPTO_DATA_DERIVE_ITERATIONS=%d\n", cfg.DeriveIterations)
	fmt.Fprintf(out, "PUBLIC_USER_TTL=%s\n", cfg.PublicUserTTL)
	fmt.Fprintf(out, "SESSION_TTL=%s\n", cfg.SessionTTL)
	fmt.Fprintf(out, "ADMIN_TOKEN=%s\n", redact(cfg.AdminToken))
	fmt.Fprintf(out, "RATE_LIMIT_RECOVERY_ENABLED=%t\n", cfg.RateLimitRecoveryEnabled)
	fmt.Fprintf(out, "RATE_LIMIT_RECOVERY_REQUESTS_PER_SEC=%g\n", cfg.RateLimitRecoveryRequestsPerSec)
	fmt.Fprintf(out, "RATE_LIMIT_RECOVERY_BURST=%d\n", cfg.RateLimitRecoveryBurst)
	fmt.Fprintf(out, "CORS_ENABLED=%t\n", cfg.CORSEnabled)
	fmt.Fprintf(out, "CORS_ALLOW_ORIGINS=%s\n", cfg.CORSAllowOrigins)
	fmt.Fprintf(out, "METRICS_ENABLED=%t\n", cfg.MetricsEnabled)
	fmt.Fprintf(out, "METRICS_NAMESPACE=%s\n", cfg.MetricsNamespace)
	fmt.Fprintf(out, "METRICS_PORT=%d\n", cfg.MetricsPort)

	return nil
}

// redact replaces a configured secret with a marker, keeping only whether it
// is set at all.
func redact(value string) string {
	if value == "" {
		return ""
	}
	return "<set>"
}
