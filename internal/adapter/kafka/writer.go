package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/config"
	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces feature records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes feature records in a single
// WriteMessages call. Records are keyed by location and timestamp so rows of
// one site stay on one partition.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.FeatureRecord) error {
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
		return fmt.Errorf("write feature records: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FeatureRecord into a Kafka message.
func serializeToMessage(rec domain.FeatureRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(rec.Location)},
			{Key: "kind", Value: []byte(rec.Kind())},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
