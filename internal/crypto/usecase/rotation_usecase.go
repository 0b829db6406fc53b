package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/service"
	"github.com/habitvault/habitvault/internal/kv"
)

// Target names what a rotation replaces: one of the DEKs, the signing key, or
// the KEK itself.
type Target string

const (
	TargetUserDek     Target = "user"
	TargetSettingsDek Target = "settings"
	TargetSessionDek  Target = "session"
	TargetSigningKey  Target = "signing"
	TargetKEK         Target = "kek"
)

// ParseTarget validates a rotation target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetUserDek, TargetSettingsDek, TargetSessionDek, TargetSigningKey, TargetKEK:
		return Target(s), nil
	}
	return "", fmt.Errorf("%w: %q", cryptoDomain.ErrUnsupportedTarget, s)
}

// State is the rotation state machine position. A Report carries the state the
// rotation reached, which is Committed on success.
type State string

const (
	StateIdle         State = "idle"
	StateGenerating   State = "generating_new_key"
	StateReEncrypting State = "re_encrypting"
	StateCommitted    State = "committed"
)

// Report describes one completed (or failed) rotation.
type Report struct {
	Target      Target
	State       State
	ReEncrypted int      // records rewritten under the new key
	Skipped     []string // paths that failed to decrypt and were left behind
	Deleted     int      // records discarded instead of re-encrypted
	// NewKeyHex is the fresh key material, surfaced to the caller exactly once
	// for operator display. Never logged.
	NewKeyHex string
	// RestartRequired is set for KEK rotation: the operator must install the
	// new KEK in the environment and restart the process.
	RestartRequired bool
}

// Engine replaces key material and re-encrypts every record in the affected
// scope. It operates across the registry and the store, bypassing the normal
// caller paths, and processes one path at a time to bound memory and keep the
// old/new key swap free of concurrent writers.
type Engine struct {
	kv        kv.Store
	cipher    service.Cipher
	keyring   *cryptoDomain.Keyring
	keyringUC *KeyringUseCase
	logger    *slog.Logger
}

// NewEngine creates the rotation engine.
func NewEngine(
	kvStore kv.Store,
	cipher service.Cipher,
	keyring *cryptoDomain.Keyring,
	keyringUC *KeyringUseCase,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		kv:        kvStore,
		cipher:    cipher,
		keyring:   keyring,
		keyringUC: keyringUC,
		logger:    logger,
	}
}

// Rotate replaces the target's key material. The commit order is fixed:
// re-encrypt (or discard) affected records first, persist the registry under
// the KEK, then swap the in-memory keyring. A failure before the registry
// write leaves the old key fully in effect.
//
// Decrypt failures during re-encryption do not abort the rotation: the path is
// logged, skipped, and listed in the report. A skipped path is unreadable
// under the new key — surfaced to the operator, never silently swallowed.
func (e *Engine) Rotate(ctx context.Context, target Target) (*Report, error) {
	report := &Report{Target: target, State: StateIdle}

	if target == TargetKEK {
		return e.rotateKEK(ctx, report)
	}

	name := cryptoDomain.DekName(target)
	if !name.Valid() {
		return report, fmt.Errorf("%w: %q", cryptoDomain.ErrUnsupportedTarget, target)
	}

	oldKey, err := e.keyring.Dek(name)
	if err != nil {
		return report, err
	}

	report.State = StateGenerating
	newKey, err := e.cipher.GenerateKey()
	if err != nil {
		return report, fmt.Errorf("failed to generate new %s key: %w", name, err)
	}

	report.State = StateReEncrypting
	switch name {
	case cryptoDomain.DekUser:
		// Every user's uuDEK moves from the old user DEK to the new one. The
		// uuDEKs themselves do not change, so user records are untouched.
		if err := e.reEncryptPrefix(ctx, cryptoDomain.PathUserKeyPrefix, oldKey, newKey, report); err != nil {
			return report, err
		}

	case cryptoDomain.DekSettings:
		if err := e.reEncryptSettings(ctx, oldKey, newKey, report); err != nil {
			return report, err
		}

	case cryptoDomain.DekSession:
		// Sessions are discarded, not re-encrypted: forcing re-login is cheaper
		// and safer than trusting a re-encryption window for ephemeral data.
		deleted, err := e.kv.DeletePrefix(ctx, cryptoDomain.PathSessionPrefix)
		if err != nil {
			return report, fmt.Errorf("failed to invalidate sessions: %w", err)
		}
		report.Deleted += deleted

	case cryptoDomain.DekSigning:
		// Outstanding session and guest tokens can no longer be verified, so
		// both go: all sessions, and all guest users with their uuDEK paths.
		if err := e.discardSigningDependents(ctx, report); err != nil {
			return report, err
		}
	}

	deks := e.keyring.Deks()
	deks[name] = newKey
	if err := e.keyringUC.Persist(ctx, e.keyring.KEK(), deks); err != nil {
		return report, fmt.Errorf("failed to commit rotated %s key: %w", name, err)
	}

	if err := e.keyring.SwapDek(name, newKey); err != nil {
		return report, err
	}

	report.State = StateCommitted
	report.NewKeyHex = hex.EncodeToString(newKey)

	e.logger.Info("rotation committed",
		slog.String("target", string(target)),
		slog.Int("re_encrypted", report.ReEncrypted),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("deleted", report.Deleted),
	)

	return report, nil
}

// RotateBatch rotates several targets in order. A failed target does not roll
// back earlier committed ones; the partial result is returned alongside the
// first error.
func (e *Engine) RotateBatch(ctx context.Context, targets []Target) ([]*Report, error) {
	reports := make([]*Report, 0, len(targets))
	for _, target := range targets {
		report, err := e.Rotate(ctx, target)
		reports = append(reports, report)
		if err != nil {
			return reports, fmt.Errorf("rotation of %s failed: %w", target, err)
		}
	}
	return reports, nil
}

// rotateKEK re-encrypts only the DEK registry: user data is encrypted under
// DEKs and is unaffected by KEK rotation. The new KEK is returned in the
// report for one-time display; the operator installs it in the environment
// and restarts the process.
func (e *Engine) rotateKEK(ctx context.Context, report *Report) (*Report, error) {
	report.State = StateGenerating
	newKEK, err := e.cipher.GenerateKey()
	if err != nil {
		return report, fmt.Errorf("failed to generate new KEK: %w", err)
	}

	report.State = StateReEncrypting
	if err := e.keyringUC.Persist(ctx, newKEK, e.keyring.Deks()); err != nil {
		return report, fmt.Errorf("failed to re-encrypt key registry: %w", err)
	}
	report.ReEncrypted = 1

	if err := e.keyring.SwapKEK(newKEK); err != nil {
		return report, err
	}

	report.State = StateCommitted
	report.NewKeyHex = hex.EncodeToString(newKEK)
	report.RestartRequired = true

	e.logger.Info("KEK rotation committed, process restart required")
	return report, nil
}

// reEncryptPrefix rewrites every record under prefix from oldKey to newKey,
// one path at a time. Undecryptable paths are logged and skipped.
func (e *Engine) reEncryptPrefix(ctx context.Context, prefix string, oldKey, newKey []byte, report *Report) error {
	keys, err := e.kv.Keys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", prefix, err)
	}

	for _, key := range keys {
		if err := e.reEncryptPath(ctx, key, oldKey, newKey, report); err != nil {
			return err
		}
	}
	return nil
}

// reEncryptSettings rewrites every user settings record. Settings live inside
// each user scope, so the enumeration filters the user prefix by record name.
func (e *Engine) reEncryptSettings(ctx context.Context, oldKey, newKey []byte, report *Report) error {
	keys, err := e.kv.Keys(ctx, cryptoDomain.PathUserPrefix)
	if err != nil {
		return fmt.Errorf("failed to enumerate user records: %w", err)
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, "/settings") {
			continue
		}
		if err := e.reEncryptPath(ctx, key, oldKey, newKey, report); err != nil {
			return err
		}
	}
	return nil
}

// reEncryptPath moves one record from oldKey to newKey. Store failures abort
// the rotation; decrypt failures skip the path.
func (e *Engine) reEncryptPath(ctx context.Context, key string, oldKey, newKey []byte, report *Report) error {
	blob, found, err := e.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !found {
		// Expired between enumeration and read.
		return nil
	}

	plaintext, err := e.cipher.Open(oldKey, blob)
	if err != nil {
		report.Skipped = append(report.Skipped, key)
		e.logger.Warn("skipping undecryptable record during rotation", slog.String("path", key))
		return nil
	}

	reSealed, err := e.cipher.Seal(newKey, plaintext)
	cryptoDomain.Zero(plaintext)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt %s: %w", key, err)
	}

	// Replace keeps the record's stored expiry, so TTL'd records stay on
	// their original schedule through rotation.
	if err := e.kv.Replace(ctx, key, reSealed); err != nil {
		return fmt.Errorf("failed to write re-encrypted %s: %w", key, err)
	}

	report.ReEncrypted++
	return nil
}

// discardSigningDependents deletes everything whose validity rests on the
// signing key: all sessions and all guest (public) users.
func (e *Engine) discardSigningDependents(ctx context.Context, report *Report) error {
	deleted, err := e.kv.DeletePrefix(ctx, cryptoDomain.PathSessionPrefix)
	if err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	report.Deleted += deleted

	deleted, err = e.kv.DeletePrefix(ctx, cryptoDomain.PathUserPrefix+"public_")
	if err != nil {
		return fmt.Errorf("failed to delete public users: %w", err)
	}
	report.Deleted += deleted

	deleted, err = e.kv.DeletePrefix(ctx, cryptoDomain.PathUserKeyPrefix+"public_")
	if err != nil {
		return fmt.Errorf("failed to delete public user keys: %w", err)
	}
	report.Deleted += deleted

	return nil
}
