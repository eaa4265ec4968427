package app

import (
	"context"
	"fmt"
	"time"

	"github.com/allisson/pseudonyms/internal/config"
	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoMySQL "github.com/allisson/pseudonyms/internal/crypto/repository/mysql"
	cryptoPostgreSQL "github.com/allisson/pseudonyms/internal/crypto/repository/postgresql"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUseCase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	"github.com/allisson/pseudonyms/internal/database"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// Pepper returns the server pepper, decrypting it with KMS when only the ciphertext
// is configured.
func (c *Container) Pepper() (*cryptoDomain.Pepper, error) {
	c.pepperInit.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pepper, err := cryptoService.LoadPepper(
			ctx,
			c.KMSService(),
			c.config.Pepper,
			c.config.PepperCiphertext,
			c.config.KMSKeyURI,
		)
		if err != nil {
			c.setInitError("pepper", fmt.Errorf("failed to load pepper: %w", err))
			return
		}
		c.pepper = pepper
	})
	if err := c.initError("pepper"); err != nil {
		return nil, err
	}
	return c.pepper, nil
}

// KeyDerivation returns the PBKDF2 key derivation bound to the pepper.
func (c *Container) KeyDerivation() (cryptoService.KeyDerivation, error) {
	c.keyDerivationInit.Do(func() {
		pepper, err := c.Pepper()
		if err != nil {
			c.setInitError("keyDerivation", err)
			return
		}
		kdf, err := cryptoService.NewKeyDerivation(pepper, c.config.KDFIterations)
		if err != nil {
			c.setInitError("keyDerivation", fmt.Errorf("failed to create key derivation: %w", err))
			return
		}
		c.keyDerivation = kdf
	})
	if err := c.initError("keyDerivation"); err != nil {
		return nil, err
	}
	return c.keyDerivation, nil
}

// IdentityVault returns the vault sealing identity records with the configured cipher.
func (c *Container) IdentityVault() (cryptoService.IdentityVault, error) {
	c.identityVaultInit.Do(func() {
		algorithm, err := cryptoDomain.ParseAlgorithm(c.config.IdentityCipher)
		if err != nil {
			c.setInitError("identityVault", err)
			return
		}
		c.identityVault = cryptoService.NewIdentityVault(c.AEADManager(), algorithm)
	})
	if err := c.initError("identityVault"); err != nil {
		return nil, err
	}
	return c.identityVault, nil
}

// MasterKeyRepository returns the stored master key repository based on database driver.
func (c *Container) MasterKeyRepository() (cryptoUseCase.MasterKeyRepository, error) {
	c.masterKeyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("masterKeyRepo", fmt.Errorf("failed to get database for master key repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.masterKeyRepo = cryptoMySQL.NewMySQLMasterKeyRepository(db)
		case database.DriverPostgres:
			c.masterKeyRepo = cryptoPostgreSQL.NewPostgreSQLMasterKeyRepository(db)
		default:
			c.setInitError("masterKeyRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("masterKeyRepo"); err != nil {
		return nil, err
	}
	return c.masterKeyRepo, nil
}

// PepperVerifierRepository returns the pepper verifier repository based on database driver.
func (c *Container) PepperVerifierRepository() (cryptoUseCase.PepperVerifierRepository, error) {
	c.pepperVerifierRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError(
				"pepperVerifierRepo",
				fmt.Errorf("failed to get database for pepper verifier repository: %w", err),
			)
			return
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.pepperVerifierRepo = cryptoMySQL.NewMySQLPepperVerifierRepository(db)
		case database.DriverPostgres:
			c.pepperVerifierRepo = cryptoPostgreSQL.NewPostgreSQLPepperVerifierRepository(db)
		default:
			c.setInitError("pepperVerifierRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("pepperVerifierRepo"); err != nil {
		return nil, err
	}
	return c.pepperVerifierRepo, nil
}

// KeyProvider returns the master key provider for the configured KEY_MODE.
//
// The pepper is checked against the stored verifier before the provider is handed out,
// so a changed pepper stops every operation that needs a master key.
func (c *Container) KeyProvider() (cryptoUseCase.KeyProvider, error) {
	c.keyProviderInit.Do(func() {
		provider, err := c.initKeyProvider()
		if err != nil {
			c.setInitError("keyProvider", err)
			return
		}
		c.keyProvider = provider
	})
	if err := c.initError("keyProvider"); err != nil {
		return nil, err
	}
	return c.keyProvider, nil
}

func (c *Container) initKeyProvider() (cryptoUseCase.KeyProvider, error) {
	pepper, err := c.Pepper()
	if err != nil {
		return nil, err
	}

	kdf, err := c.KeyDerivation()
	if err != nil {
		return nil, err
	}

	verifierRepo, err := c.PepperVerifierRepository()
	if err != nil {
		return nil, err
	}

	guard, err := cryptoUseCase.NewPepperGuard(verifierRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to create pepper guard: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := guard.Ensure(ctx, pepper); err != nil {
		return nil, fmt.Errorf("pepper verification failed: %w", err)
	}

	switch c.config.KeyMode {
	case config.KeyModeRandom:
		repo, err := c.MasterKeyRepository()
		if err != nil {
			return nil, err
		}
		algorithm, err := cryptoDomain.ParseAlgorithm(c.config.IdentityCipher)
		if err != nil {
			return nil, err
		}
		return cryptoUseCase.NewRandomKeyProvider(repo, kdf, c.AEADManager(), algorithm)
	default:
		return cryptoUseCase.NewDerivedKeyProvider(kdf), nil
	}
}
