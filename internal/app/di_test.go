package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/habitvault/habitvault/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	kek := make([]byte, 32)
	if _, err := rand.Read(kek); err != nil {
		t.Fatalf("failed to generate kek: %v", err)
	}

	return &config.Config{
		LogLevel:         "error",
		ServerHost:       "127.0.0.1",
		ServerPort:       0,
		ShutdownTimeout:  time.Second,
		DataPath:         filepath.Join(t.TempDir(), "test.db"),
		KEKHex:           hex.EncodeToString(kek),
		DeriveSalt:       "test-salt",
		DeriveIterations: 1000,
		PublicUserTTL:    14 * 24 * time.Hour,
		SessionTTL:       30 * 24 * time.Hour,
		MetricsEnabled:   false,
		MetricsNamespace: "habitvault",
	}
}

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)
	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger can be retrieved from the container.
func TestContainerLogger(t *testing.T) {
	container := NewContainer(testConfig(t))
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	// Calling Logger() again should return the same instance (singleton)
	logger2 := container.Logger()
	if logger != logger2 {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerKeyringRequiresInitializedRegistry verifies that the keyring
// cannot be loaded before init-keys has run against the data file.
func TestContainerKeyringRequiresInitializedRegistry(t *testing.T) {
	container := NewContainer(testConfig(t))
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}()

	if _, err := container.Keyring(); err == nil {
		t.Error("expected error when loading keyring from an empty store")
	}
}

// TestContainerFullAssembly verifies that every component can be built once the
// key registry exists.
func TestContainerFullAssembly(t *testing.T) {
	container := NewContainer(testConfig(t))
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}()

	kek, err := container.KEK()
	if err != nil {
		t.Fatalf("failed to load kek: %v", err)
	}

	keyringUseCase, err := container.KeyringUseCase()
	if err != nil {
		t.Fatalf("failed to get keyring use case: %v", err)
	}
	if _, err := keyringUseCase.Init(context.Background(), kek); err != nil {
		t.Fatalf("failed to initialize key registry: %v", err)
	}

	if _, err := container.Keyring(); err != nil {
		t.Fatalf("failed to load keyring: %v", err)
	}
	if _, err := container.Signer(); err != nil {
		t.Fatalf("failed to get signer: %v", err)
	}
	if _, err := container.RotationEngine(); err != nil {
		t.Fatalf("failed to get rotation engine: %v", err)
	}
	if _, err := container.UserUseCase(); err != nil {
		t.Fatalf("failed to get user use case: %v", err)
	}
	if _, err := container.SessionUseCase(); err != nil {
		t.Fatalf("failed to get session use case: %v", err)
	}
	if _, err := container.RecoveryUseCase(); err != nil {
		t.Fatalf("failed to get recovery use case: %v", err)
	}

	server, err := container.HTTPServer()
	if err != nil {
		t.Fatalf("failed to get http server: %v", err)
	}
	if server == nil {
		t.Fatal("expected non-nil http server")
	}

	// Calling HTTPServer() again should return the same instance (singleton)
	server2, err := container.HTTPServer()
	if err != nil {
		t.Fatalf("failed to get http server on second call: %v", err)
	}
	if server != server2 {
		t.Error("expected same http server instance on multiple calls")
	}
}

// TestContainerInitializationErrors verifies that initialization errors are
// stored and returned on repeated access.
func TestContainerInitializationErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.KEKHex = "not-hex"

	container := NewContainer(cfg)
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}()

	if _, err := container.KEK(); err == nil {
		t.Error("expected error for malformed kek")
	}

	if _, err2 := container.KEK(); err2 == nil {
		t.Error("expected error on second call to KEK()")
	}
}

// TestContainerLazyInitialization verifies that components are only initialized
// when accessed.
func TestContainerLazyInitialization(t *testing.T) {
	container := NewContainer(testConfig(t))

	// At this point, no components should be initialized
	if container.logger != nil {
		t.Error("expected logger to be nil before first access")
	}
	if container.store != nil {
		t.Error("expected store to be nil before first access")
	}

	logger := container.Logger()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	// Now logger should be initialized, store still untouched
	if container.logger == nil {
		t.Error("expected logger to be initialized after access")
	}
	if container.store != nil {
		t.Error("expected store to remain nil until accessed")
	}
}
