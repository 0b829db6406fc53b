package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/envelope"
	cryptoService "github.com/habitvault/habitvault/internal/crypto/service"
	cryptoUsecase "github.com/habitvault/habitvault/internal/crypto/usecase"
)

// Cipher returns the AES-GCM blob cipher.
func (c *Container) Cipher() *cryptoService.BlobCipher {
	c.cipherInit.Do(func() {
		c.cipher = cryptoService.NewBlobCipher()
	})
	return c.cipher
}

// Deriver returns the key derivation service.
func (c *Container) Deriver() *cryptoService.Deriver {
	c.deriverInit.Do(func() {
		c.deriver = cryptoService.NewDeriver(c.config.DeriveSalt, c.config.DeriveIterations)
	})
	return c.deriver
}

// KEKLoader returns the KEK loader service.
func (c *Container) KEKLoader() *cryptoService.KEKLoader {
	c.kekLoaderInit.Do(func() {
		c.kekLoader = cryptoService.NewKEKLoader()
	})
	return c.kekLoader
}

// KEK returns the root key encryption key loaded from the environment or KMS.
func (c *Container) KEK() ([]byte, error) {
	var err error
	c.kekInit.Do(func() {
		c.kek, err = c.KEKLoader().Load(context.Background(), c.config)
		if err != nil {
			c.initErrors["kek"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kek"]; exists {
		return nil, storedErr
	}
	return c.kek, nil
}

// Keyring returns the in-memory keyring, loading the encrypted key registry
// from storage under the KEK on first access.
func (c *Container) Keyring() (*cryptoDomain.Keyring, error) {
	var err error
	c.keyringInit.Do(func() {
		c.keyring, err = c.initKeyring()
		if err != nil {
			c.initErrors["keyring"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyring"]; exists {
		return nil, storedErr
	}
	return c.keyring, nil
}

// Signer returns the HMAC signing service backed by the keyring.
func (c *Container) Signer() (*cryptoService.HMACSigner, error) {
	var err error
	c.signerInit.Do(func() {
		var keyring *cryptoDomain.Keyring
		keyring, err = c.Keyring()
		if err != nil {
			c.initErrors["signer"] = err
			return
		}
		c.signer = cryptoService.NewHMACSigner(keyring)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signer"]; exists {
		return nil, storedErr
	}
	return c.signer, nil
}

// EnvelopeStore returns the encrypted record store.
func (c *Container) EnvelopeStore() (*envelope.Store, error) {
	var err error
	c.envelopeStoreInit.Do(func() {
		c.envelopeStore, err = c.initEnvelopeStore()
		if err != nil {
			c.initErrors["envelopeStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeStore"]; exists {
		return nil, storedErr
	}
	return c.envelopeStore, nil
}

// KeyringUseCase returns the keyring lifecycle use case.
func (c *Container) KeyringUseCase() (*cryptoUsecase.KeyringUseCase, error) {
	var err error
	c.keyringUseCaseInit.Do(func() {
		c.keyringUseCase, err = c.initKeyringUseCase()
		if err != nil {
			c.initErrors["keyringUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyringUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyringUseCase, nil
}

// RotationEngine returns the key rotation engine.
func (c *Container) RotationEngine() (*cryptoUsecase.Engine, error) {
	var err error
	c.rotationEngineInit.Do(func() {
		c.rotationEngine, err = c.initRotationEngine()
		if err != nil {
			c.initErrors["rotationEngine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationEngine"]; exists {
		return nil, storedErr
	}
	return c.rotationEngine, nil
}

// initKeyring loads the key registry from storage and builds the keyring.
func (c *Container) initKeyring() (*cryptoDomain.Keyring, error) {
	kek, err := c.KEK()
	if err != nil {
		return nil, fmt.Errorf("failed to get kek for keyring: %w", err)
	}

	keyringUseCase, err := c.KeyringUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring use case for keyring: %w", err)
	}

	keyring, err := keyringUseCase.Load(context.Background(), kek)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring: %w", err)
	}
	return keyring, nil
}

// initEnvelopeStore creates the encrypted record store.
func (c *Container) initEnvelopeStore() (*envelope.Store, error) {
	store, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for envelope store: %w", err)
	}
	return envelope.NewStore(store, c.Cipher()), nil
}

// initKeyringUseCase creates the keyring lifecycle use case.
func (c *Container) initKeyringUseCase() (*cryptoUsecase.KeyringUseCase, error) {
	store, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for keyring use case: %w", err)
	}

	envelopeStore, err := c.EnvelopeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope store for keyring use case: %w", err)
	}

	return cryptoUsecase.NewKeyringUseCase(store, envelopeStore, c.Cipher()), nil
}

// initRotationEngine creates the rotation engine with all its dependencies.
func (c *Container) initRotationEngine() (*cryptoUsecase.Engine, error) {
	store, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for rotation engine: %w", err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for rotation engine: %w", err)
	}

	keyringUseCase, err := c.KeyringUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring use case for rotation engine: %w", err)
	}

	return cryptoUsecase.NewEngine(store, c.Cipher(), keyring, keyringUseCase, c.Logger()), nil
}
