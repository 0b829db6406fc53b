// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int
	// ShutdownTimeout is the maximum time allowed for graceful shutdown.
	ShutdownTimeout time.Duration

	// DataPath is the filesystem path of the bbolt database file.
	DataPath string

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// KEKHex is the hex-encoded root Key Encryption Key. Required at boot unless
	// KMSKeyURI is set, in which case WrappedKEK is unwrapped through the KMS keeper.
	KEKHex string
	// KMSKeyURI is the gocloud.dev secrets keeper URI used to unwrap the KEK
	// (e.g., "hashivault://keyname", "base64key://..."). Optional.
	KMSKeyURI string
	// WrappedKEK is the base64-encoded KEK ciphertext unwrapped via KMSKeyURI.
	WrappedKEK string

	// DeriveSalt is the salt for PBKDF2 and keyed-hash derivation paths.
	DeriveSalt string
	// DeriveIterations is the PBKDF2 iteration count for string-derived keys.
	DeriveIterations int

	// PublicUserTTL is how long guest (public) user data survives before expiry.
	PublicUserTTL time.Duration
	// SessionTTL is how long session records survive before expiry.
	SessionTTL time.Duration

	// AdminToken guards the rotation endpoints. Rotation over HTTP is disabled
	// when empty.
	AdminToken string

	// RateLimitRecoveryEnabled indicates whether the unauthenticated recovery
	// endpoint is rate limited per client IP.
	RateLimitRecoveryEnabled bool
	// RateLimitRecoveryRequestsPerSec is the allowed request rate for recovery attempts.
	RateLimitRecoveryRequestsPerSec float64
	// RateLimitRecoveryBurst is the burst size for recovery attempts.
	RateLimitRecoveryBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost:      env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort:      env.GetInt("SERVER_PORT", 8080),
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 15, time.Second),

		// Storage
		DataPath: env.GetString("DATA_PATH", "habitvault.db"),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Key material
		KEKHex:     env.GetString("CRYPTO_KEK", ""),
		KMSKeyURI:  env.GetString("KMS_KEY_URI", ""),
		WrappedKEK: env.GetString("CRYPTO_KEK_WRAPPED", ""),

		// Derivation parameters
		DeriveSalt:       env.GetString("CRYPTO_DATA_DERIVE_SALT", ""),
		DeriveIterations: env.GetInt("CRYPTO_DATA_DERIVE_ITERATIONS", 600000),

		// Data lifetimes
		PublicUserTTL: env.GetDuration("PUBLIC_USER_TTL_DAYS", 14, 24*time.Hour),
		SessionTTL:    env.GetDuration("SESSION_TTL_DAYS", 30, 24*time.Hour),

		// Admin
		AdminToken: env.GetString("ADMIN_TOKEN", ""),

		// Rate limiting for the unauthenticated recovery endpoint
		RateLimitRecoveryEnabled:        env.GetBool("RATE_LIMIT_RECOVERY_ENABLED", true),
		RateLimitRecoveryRequestsPerSec: env.GetFloat64("RATE_LIMIT_RECOVERY_REQUESTS_PER_SEC", 1.0),
		RateLimitRecoveryBurst:          env.GetInt("RATE_LIMIT_RECOVERY_BURST", 3),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "habitvault"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
