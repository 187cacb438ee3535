// Package kafka publishes normalized crash incidents to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/config"
	"github.com/couchcryptid/crash-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerRunID    = "run_id"
	headerLoadedAt = "loaded_at"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per normalized incident.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured incident topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes the incidents of one load run and writes them in a
// single WriteMessages call. Messages are keyed by crash number so that
// repeated loads of the same crash land on the same partition.
func (p *Publisher) Publish(ctx context.Context, runID string, incidents []domain.NormalizedIncident) error {
	if len(incidents) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(incidents))
	for i := range incidents {
		msg, err := serializeToMessage(runID, incidents[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write incidents: %w", err)
	}
	p.logger.Debug("incidents published", "run_id", runID, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a NormalizedIncident into a Kafka message.
// Incidents without a crash number fall back to their batch id as key.
func serializeToMessage(runID string, incident domain.NormalizedIncident) (kafkago.Message, error) {
	data, err := json.Marshal(incident)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize incident: %w", err)
	}
	key := incident.Key()
	if key == "" {
		key = strconv.Itoa(incident.ID)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerRunID, Value: []byte(runID)},
			{Key: headerLoadedAt, Value: []byte(incident.LoadedAt.Format(time.RFC3339))},
		},
	}, nil
}
