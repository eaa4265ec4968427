package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

// Producer is the subset of *kgo.Client used by KafkaSink.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaSink streams audit events to a Kafka topic, keyed by group id so events of a
// group stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

type kafkaEvent struct {
	ID                   string `json:"id"`
	RequesterPrincipalID int64  `json:"requester_principal_id"`
	GroupID              *int64 `json:"group_id,omitempty"`
	SubjectPrincipalID   *int64 `json:"subject_principal_id,omitempty"`
	Operation            string `json:"operation"`
	Outcome              string `json:"outcome"`
	Timestamp            string `json:"timestamp"`
	Signature            []byte `json:"signature"`
}

// NewKafkaClient creates a franz-go client producing to topic by default.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// NewKafkaSink creates a KafkaSink.
func NewKafkaSink(producer Producer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger}
}

// Name identifies the sink in logs.
func (k *KafkaSink) Name() string { return "kafka" }

// Write enqueues event asynchronously. Delivery failures are logged.
func (k *KafkaSink) Write(ctx context.Context, event *auditDomain.Event) error {
	value, err := json.Marshal(kafkaEvent{
		ID:                   event.ID.String(),
		RequesterPrincipalID: event.RequesterPrincipalID,
		GroupID:              event.GroupID,
		SubjectPrincipalID:   event.SubjectPrincipalID,
		Operation:            string(event.Operation),
		Outcome:              string(event.Outcome),
		Timestamp:            event.Timestamp.Format(time.RFC3339Nano),
		Signature:            event.Signature,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := "principal:" + strconv.FormatInt(event.RequesterPrincipalID, 10)
	if event.GroupID != nil {
		key = "group:" + strconv.FormatInt(*event.GroupID, 10)
	}

	record := &kgo.Record{Topic: k.topic, Key: []byte(key), Value: value}

	// The request context may be cancelled before delivery completes.
	k.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("failed to deliver audit event to kafka",
				slog.String("event_id", event.ID.String()),
				slog.String("topic", r.Topic),
				slog.Any("error", err),
			)
		}
	})
	return nil
}

// Close flushes buffered events and closes the producer.
func (k *KafkaSink) Close(ctx context.Context) error {
	err := k.producer.Flush(ctx)
	k.producer.Close()
	return err
}
