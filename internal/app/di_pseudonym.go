package app

import (
	"fmt"

	"github.com/allisson/pseudonyms/internal/database"
	pseudonymHTTP "github.com/allisson/pseudonyms/internal/pseudonym/http"
	pseudonymMySQL "github.com/allisson/pseudonyms/internal/pseudonym/repository/mysql"
	pseudonymPostgreSQL "github.com/allisson/pseudonyms/internal/pseudonym/repository/postgresql"
	pseudonymService "github.com/allisson/pseudonyms/internal/pseudonym/service"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
)

// GroupRepository returns the group repository based on database driver.
func (c *Container) GroupRepository() (pseudonymUseCase.GroupRepository, error) {
	c.groupRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("groupRepo", fmt.Errorf("failed to get database for group repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.groupRepo = pseudonymMySQL.NewMySQLGroupRepository(db)
		case database.DriverPostgres:
			c.groupRepo = pseudonymPostgreSQL.NewPostgreSQLGroupRepository(db)
		default:
			c.setInitError("groupRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("groupRepo"); err != nil {
		return nil, err
	}
	return c.groupRepo, nil
}

// MemberRepository returns the member repository based on database driver.
func (c *Container) MemberRepository() (pseudonymUseCase.MemberRepository, error) {
	c.memberRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("memberRepo", fmt.Errorf("failed to get database for member repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.memberRepo = pseudonymMySQL.NewMySQLMemberRepository(db)
		case database.DriverPostgres:
			c.memberRepo = pseudonymPostgreSQL.NewPostgreSQLMemberRepository(db)
		default:
			c.setInitError("memberRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("memberRepo"); err != nil {
		return nil, err
	}
	return c.memberRepo, nil
}

// AccessGate returns the gate authorizing and auditing access to groups and keys.
func (c *Container) AccessGate() (*pseudonymUseCase.AccessGate, error) {
	c.accessGateInit.Do(func() {
		gate, err := c.initAccessGate()
		if err != nil {
			c.setInitError("accessGate", err)
			return
		}
		c.accessGate = gate
	})
	if err := c.initError("accessGate"); err != nil {
		return nil, err
	}
	return c.accessGate, nil
}

// PseudonymUseCase returns the pseudonym use case wrapped with metrics.
func (c *Container) PseudonymUseCase() (pseudonymUseCase.PseudonymUseCase, error) {
	c.pseudonymUseCaseInit.Do(func() {
		useCase, err := c.initPseudonymUseCase()
		if err != nil {
			c.setInitError("pseudonymUseCase", err)
			return
		}
		c.pseudonymUseCase = useCase
	})
	if err := c.initError("pseudonymUseCase"); err != nil {
		return nil, err
	}
	return c.pseudonymUseCase, nil
}

// MigrationUseCase returns the identity migration use case wrapped with metrics.
func (c *Container) MigrationUseCase() (pseudonymUseCase.MigrationUseCase, error) {
	c.migrationUseCaseInit.Do(func() {
		useCase, err := c.initMigrationUseCase()
		if err != nil {
			c.setInitError("migrationUseCase", err)
			return
		}
		c.migrationUseCase = useCase
	})
	if err := c.initError("migrationUseCase"); err != nil {
		return nil, err
	}
	return c.migrationUseCase, nil
}

// GroupHandler returns the HTTP handler for groups.
func (c *Container) GroupHandler() (*pseudonymHTTP.GroupHandler, error) {
	pseudonyms, err := c.PseudonymUseCase()
	if err != nil {
		return nil, err
	}
	migrations, err := c.MigrationUseCase()
	if err != nil {
		return nil, err
	}
	return pseudonymHTTP.NewGroupHandler(pseudonyms, migrations, c.Logger()), nil
}

// PseudonymHandler returns the HTTP handler for pseudonyms and master keys.
func (c *Container) PseudonymHandler() (*pseudonymHTTP.PseudonymHandler, error) {
	pseudonyms, err := c.PseudonymUseCase()
	if err != nil {
		return nil, err
	}
	return pseudonymHTTP.NewPseudonymHandler(pseudonyms, c.Logger()), nil
}

func (c *Container) initAccessGate() (*pseudonymUseCase.AccessGate, error) {
	groupRepo, err := c.GroupRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get group repository for access gate: %w", err)
	}
	memberRepo, err := c.MemberRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get member repository for access gate: %w", err)
	}
	keyProvider, err := c.KeyProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get key provider for access gate: %w", err)
	}
	vault, err := c.IdentityVault()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity vault for access gate: %w", err)
	}
	publisher, err := c.AuditPublisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit publisher for access gate: %w", err)
	}
	return pseudonymUseCase.NewAccessGate(groupRepo, memberRepo, keyProvider, vault, publisher, c.Logger()), nil
}

func (c *Container) initPseudonymUseCase() (pseudonymUseCase.PseudonymUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for pseudonym use case: %w", err)
	}
	groupRepo, err := c.GroupRepository()
	if err != nil {
		return nil, err
	}
	memberRepo, err := c.MemberRepository()
	if err != nil {
		return nil, err
	}
	gate, err := c.AccessGate()
	if err != nil {
		return nil, err
	}
	keyProvider, err := c.KeyProvider()
	if err != nil {
		return nil, err
	}
	vault, err := c.IdentityVault()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for pseudonym use case: %w", err)
	}

	generator := pseudonymService.NewGenerator(
		c.config.MaxRealIdentifierLength,
		c.config.PseudonymMaxAttempts,
		c.config.PseudonymUseEpithet,
	)

	useCase := pseudonymUseCase.NewPseudonymUseCase(
		txManager,
		groupRepo,
		memberRepo,
		gate,
		keyProvider,
		vault,
		generator,
		pseudonymService.NewIdentityHasher(),
		pseudonymUseCase.Limits{
			MaxBatchSize:            c.config.MaxBatchSize,
			MaxRealIdentifierLength: c.config.MaxRealIdentifierLength,
		},
	)

	return pseudonymUseCase.NewPseudonymUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initMigrationUseCase() (pseudonymUseCase.MigrationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for migration use case: %w", err)
	}
	groupRepo, err := c.GroupRepository()
	if err != nil {
		return nil, err
	}
	memberRepo, err := c.MemberRepository()
	if err != nil {
		return nil, err
	}
	gate, err := c.AccessGate()
	if err != nil {
		return nil, err
	}
	keyProvider, err := c.KeyProvider()
	if err != nil {
		return nil, err
	}
	vault, err := c.IdentityVault()
	if err != nil {
		return nil, err
	}
	locker, err := c.Locker()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for migration use case: %w", err)
	}

	coordinator := pseudonymUseCase.NewMigrationCoordinator(
		txManager,
		groupRepo,
		memberRepo,
		gate,
		keyProvider,
		vault,
		pseudonymService.NewIdentityHasher(),
		locker,
		pseudonymUseCase.MigrationOptions{
			LockTTL:     c.config.MigrationLockTTL,
			Concurrency: c.config.MigrationConcurrency,
		},
		c.Logger(),
	)

	return pseudonymUseCase.NewMigrationUseCaseWithMetrics(coordinator, businessMetrics), nil
}
