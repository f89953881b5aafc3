package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"

	jsoniter "github.com/json-iterator/go"
	kafkago "github.com/segmentio/kafka-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher produces dataset update events to a Kafka topic.
// It implements pipeline.UpdatePublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and sends all updates of one run in a single
// WriteMessages call. Messages are keyed by run ID so a run's events share
// a partition.
func (p *Publisher) Publish(ctx context.Context, updates []domain.DatasetUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(updates))
	for i := range updates {
		msg, err := serializeToMessage(updates[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish dataset updates: %w", err)
	}
	p.logger.Info("dataset updates published", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a DatasetUpdate into a Kafka message.
func serializeToMessage(u domain.DatasetUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dataset update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(u.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(u.EventType)},
			{Key: "artifact", Value: []byte(u.Artifact)},
			{Key: "updated_at", Value: []byte(u.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
