package app

import (
	"fmt"

	auditMySQL "github.com/allisson/pseudonyms/internal/audit/repository/mysql"
	auditPostgreSQL "github.com/allisson/pseudonyms/internal/audit/repository/postgresql"
	auditService "github.com/allisson/pseudonyms/internal/audit/service"
	"github.com/allisson/pseudonyms/internal/audit/sink"
	auditUseCase "github.com/allisson/pseudonyms/internal/audit/usecase"
	"github.com/allisson/pseudonyms/internal/database"
)

// AuditEventRepository returns the audit event repository based on database driver.
func (c *Container) AuditEventRepository() (auditUseCase.EventRepository, error) {
	c.auditEventRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("auditEventRepo", fmt.Errorf("failed to get database for audit repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.auditEventRepo = auditMySQL.NewMySQLEventRepository(db)
		case database.DriverPostgres:
			c.auditEventRepo = auditPostgreSQL.NewPostgreSQLEventRepository(db)
		default:
			c.setInitError("auditEventRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("auditEventRepo"); err != nil {
		return nil, err
	}
	return c.auditEventRepo, nil
}

// AuditSigner returns the signer keyed by a subkey of the pepper.
func (c *Container) AuditSigner() (auditUseCase.Signer, error) {
	c.auditSignerInit.Do(func() {
		kdf, err := c.KeyDerivation()
		if err != nil {
			c.setInitError("auditSigner", fmt.Errorf("failed to get key derivation for audit signer: %w", err))
			return
		}
		signer, err := auditService.NewSigner(kdf)
		if err != nil {
			c.setInitError("auditSigner", fmt.Errorf("failed to create audit signer: %w", err))
			return
		}
		c.auditSigner = signer
	})
	if err := c.initError("auditSigner"); err != nil {
		return nil, err
	}
	return c.auditSigner, nil
}

// AuditPublisher returns the publisher fanning events out to the database, the log and,
// when KAFKA_BROKERS is set, the Kafka audit topic.
func (c *Container) AuditPublisher() (auditUseCase.Publisher, error) {
	c.auditPublisherInit.Do(func() {
		publisher, err := c.initAuditPublisher()
		if err != nil {
			c.setInitError("auditPublisher", err)
			return
		}
		c.auditPublisher = publisher
	})
	if err := c.initError("auditPublisher"); err != nil {
		return nil, err
	}
	return c.auditPublisher, nil
}

// AuditEventVerifier returns a verifier for stored audit events.
func (c *Container) AuditEventVerifier() (*auditUseCase.EventVerifier, error) {
	repo, err := c.AuditEventRepository()
	if err != nil {
		return nil, err
	}
	signer, err := c.AuditSigner()
	if err != nil {
		return nil, err
	}
	return auditUseCase.NewEventVerifier(repo, signer), nil
}

func (c *Container) initAuditPublisher() (auditUseCase.Publisher, error) {
	logger := c.Logger()

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, err
	}

	repo, err := c.AuditEventRepository()
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	sinks := []auditUseCase.Sink{
		auditUseCase.NewRepositorySink(repo),
		sink.NewLogSink(logger),
		sink.NewMetricsSink(businessMetrics),
	}

	if brokers := c.config.KafkaBrokerList(); len(brokers) > 0 {
		client, err := sink.NewKafkaClient(brokers, c.config.KafkaAuditTopic)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.kafkaClient = client
		c.mu.Unlock()
		sinks = append(sinks, sink.NewKafkaSink(client, c.config.KafkaAuditTopic, logger))
	}

	return auditUseCase.NewPublisher(signer, logger, sinks...), nil
}
