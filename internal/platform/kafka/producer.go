// Package kafka publishes outbox messages to a Kafka-compatible broker.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"rollcall/pkg/platform/audit/outbox"
	platformstrings "rollcall/pkg/platform/strings"
)

const eventTypeHeader = "event_type"

// Producer implements outbox.Producer on a franz-go client. Records are
// keyed by the outbox aggregate id so one session's events stay ordered
// within a partition.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*Producer)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) {
		p.logger = logger
	}
}

// NewProducer dials brokers. Publishing waits for all in-sync replicas.
func NewProducer(brokers []string, topic string, opts ...Option) (*Producer, error) {
	brokers = platformstrings.DedupeAndTrim(brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &Producer{client: client, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish produces msgs synchronously and fails if any record was not acknowledged.
func (p *Producer) Publish(ctx context.Context, msgs []outbox.Message) error {
	records := make([]*kgo.Record, len(msgs))
	for i, m := range msgs {
		records[i] = &kgo.Record{
			Topic: p.topic,
			Key:   []byte(m.Key),
			Value: m.Payload,
			Headers: []kgo.RecordHeader{
				{Key: eventTypeHeader, Value: []byte(m.EventType)},
				{Key: "outbox_id", Value: []byte(m.ID.String())},
			},
		}
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d audit records: %w", len(records), err)
	}
	p.logger.DebugContext(ctx, "published audit batch", "topic", p.topic, "count", len(records))
	return nil
}

// EnsureTopic creates the producer's topic when it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)
	topics, err := admin.ListTopics(ctx, p.topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(p.topic) {
		return nil
	}
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	p.logger.InfoContext(ctx, "created kafka topic", "topic", p.topic, "partitions", partitions)
	return nil
}

// Ping checks that at least one broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
