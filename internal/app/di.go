// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	auditUseCase "github.com/allisson/pseudonyms/internal/audit/usecase"
	authService "github.com/allisson/pseudonyms/internal/auth/service"
	"github.com/allisson/pseudonyms/internal/config"
	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUseCase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	"github.com/allisson/pseudonyms/internal/database"
	"github.com/allisson/pseudonyms/internal/http"
	"github.com/allisson/pseudonyms/internal/lock"
	"github.com/allisson/pseudonyms/internal/metrics"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	redisClient     *redis.Client
	kafkaClient     *kgo.Client
	locker          lock.Locker

	// Managers
	txManager database.TxManager

	// Crypto
	pepper             *cryptoDomain.Pepper
	kmsService         cryptoService.KMSService
	aeadManager        cryptoService.AEADManager
	keyDerivation      cryptoService.KeyDerivation
	identityVault      cryptoService.IdentityVault
	masterKeyRepo      cryptoUseCase.MasterKeyRepository
	pepperVerifierRepo cryptoUseCase.PepperVerifierRepository
	keyProvider        cryptoUseCase.KeyProvider

	// Audit
	auditEventRepo auditUseCase.EventRepository
	auditSigner    auditUseCase.Signer
	auditPublisher auditUseCase.Publisher

	// Pseudonyms
	groupRepo        pseudonymUseCase.GroupRepository
	memberRepo       pseudonymUseCase.MemberRepository
	accessGate       *pseudonymUseCase.AccessGate
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase
	migrationUseCase pseudonymUseCase.MigrationUseCase

	// Auth
	tokenService authService.TokenService

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	redisClientInit        sync.Once
	kafkaClientInit        sync.Once
	lockerInit             sync.Once
	pepperInit             sync.Once
	kmsServiceInit         sync.Once
	aeadManagerInit        sync.Once
	keyDerivationInit      sync.Once
	identityVaultInit      sync.Once
	masterKeyRepoInit      sync.Once
	pepperVerifierRepoInit sync.Once
	keyProviderInit        sync.Once
	auditEventRepoInit     sync.Once
	auditSignerInit        sync.Once
	auditPublisherInit     sync.Once
	groupRepoInit          sync.Once
	memberRepoInit         sync.Once
	accessGateInit         sync.Once
	pseudonymUseCaseInit   sync.Once
	migrationUseCaseInit   sync.Once
	tokenServiceInit       sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// setInitError records the first initialization error of a component.
func (c *Container) setInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

// initError returns the stored initialization error of a component.
func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.setInitError("db", err)
			return
		}
		c.db = db
	})
	if err := c.initError("db"); err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("txManager", fmt.Errorf("failed to get database for tx manager: %w", err))
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err := c.initError("txManager"); err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics
// are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
			return
		}
		c.metricsProvider = provider
	})
	if err := c.initError("metricsProvider"); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("businessMetrics", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("businessMetrics", fmt.Errorf("failed to create business metrics: %w", err))
			return
		}
		c.businessMetrics = businessMetrics
	})
	if err := c.initError("businessMetrics"); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// RedisClient returns the Redis client, or nil when REDIS_URL is not set.
func (c *Container) RedisClient() (*redis.Client, error) {
	c.redisClientInit.Do(func() {
		if c.config.RedisURL == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := lock.NewRedisClient(ctx, c.config.RedisURL)
		if err != nil {
			c.setInitError("redisClient", err)
			return
		}
		c.redisClient = client
	})
	if err := c.initError("redisClient"); err != nil {
		return nil, err
	}
	return c.redisClient, nil
}

// Locker returns the per-group migration lock. A Redis lock is used when Redis is
// configured so that migrations are exclusive across instances.
func (c *Container) Locker() (lock.Locker, error) {
	c.lockerInit.Do(func() {
		client, err := c.RedisClient()
		if err != nil {
			c.setInitError("locker", fmt.Errorf("failed to get redis client for locker: %w", err))
			return
		}
		if client == nil {
			c.Logger().Warn("REDIS_URL not set, migration locks are local to this process")
			c.locker = lock.NewLocalLocker()
			return
		}
		c.locker = lock.NewRedisLocker(client)
	})
	if err := c.initError("locker"); err != nil {
		return nil, err
	}
	return c.locker, nil
}

// HTTPServer returns the HTTP server with all routes configured.
// ctx bounds background work started by the router.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer(ctx)
		if err != nil {
			c.setInitError("httpServer", err)
			return
		}
		c.httpServer = server
	})
	if err := c.initError("httpServer"); err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("metricsServer", err)
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err := c.initError("metricsServer"); err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.kafkaClient != nil {
		if err := c.kafkaClient.Flush(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kafka flush: %w", err))
		}
		c.kafkaClient.Close()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.pepper != nil {
		c.pepper.Close()
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for http server: %w", err)
	}

	groupHandler, err := c.GroupHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get group handler for http server: %w", err)
	}

	pseudonymHandler, err := c.PseudonymHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get pseudonym handler for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(ctx, c.config, tokenService, groupHandler, pseudonymHandler, metricsProvider)

	return server, nil
}
