package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/config"
	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces interaction records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured interaction topic.
// Records are keyed by session id so one session's transitions stay ordered
// within a partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchFlushInterval,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes interaction records in a single
// WriteMessages call.
func (w *Writer) PublishBatch(ctx context.Context, records []domain.Interaction) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write interactions: %w", err)
	}
	w.logger.Debug("interactions published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Interaction into a Kafka message.
func serializeToMessage(rec domain.Interaction) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize interaction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SessionID),
		Value: data,
		Time:  rec.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(rec.EventType)},
			{Key: "occurred_at", Value: []byte(rec.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeInteraction parses a message produced by Writer.
func DecodeInteraction(msg kafkago.Message) (domain.Interaction, error) {
	var rec domain.Interaction
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return domain.Interaction{}, fmt.Errorf("decode interaction: %w", err)
	}
	return rec, nil
}
