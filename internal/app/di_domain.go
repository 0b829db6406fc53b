package app

import (
	"fmt"

	"github.com/habitvault/habitvault/internal/recovery"
	"github.com/habitvault/habitvault/internal/session"
	userUsecase "github.com/habitvault/habitvault/internal/user/usecase"
)

// UserUseCase returns the user data use case.
func (c *Container) UserUseCase() (*userUsecase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// SessionUseCase returns the session use case.
func (c *Container) SessionUseCase() (*session.UseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// RecoveryUseCase returns the account recovery use case.
func (c *Container) RecoveryUseCase() (*recovery.UseCase, error) {
	var err error
	c.recoveryUseCaseInit.Do(func() {
		c.recoveryUseCase, err = c.initRecoveryUseCase()
		if err != nil {
			c.initErrors["recoveryUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recoveryUseCase"]; exists {
		return nil, storedErr
	}
	return c.recoveryUseCase, nil
}

// initUserUseCase creates the user data use case with all its dependencies.
func (c *Container) initUserUseCase() (*userUsecase.UserUseCase, error) {
	envelopeStore, err := c.EnvelopeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope store for user use case: %w", err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for user use case: %w", err)
	}

	return userUsecase.NewUserUseCase(
		envelopeStore,
		c.Cipher(),
		c.Deriver(),
		keyring,
		c.config.PublicUserTTL,
		c.Logger(),
	), nil
}

// initSessionUseCase creates the session use case with all its dependencies.
func (c *Container) initSessionUseCase() (*session.UseCase, error) {
	envelopeStore, err := c.EnvelopeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope store for session use case: %w", err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for session use case: %w", err)
	}

	signer, err := c.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for session use case: %w", err)
	}

	return session.NewUseCase(envelopeStore, keyring, signer, c.config.SessionTTL, c.Logger()), nil
}

// initRecoveryUseCase creates the recovery use case with all its dependencies.
func (c *Container) initRecoveryUseCase() (*recovery.UseCase, error) {
	envelopeStore, err := c.EnvelopeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope store for recovery use case: %w", err)
	}

	users, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for recovery use case: %w", err)
	}

	return recovery.NewUseCase(envelopeStore, c.Deriver(), users, c.Logger()), nil
}
