package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/energex-outages-etl/internal/config"
	"github.com/couchcryptid/energex-outages-etl/internal/domain"
)

// Writer publishes saved rows to one Kafka topic per table, named
// <prefix><table>.
// It implements pipeline.Store.
type Writer struct {
	writer      *kafkago.Writer
	topicPrefix string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured brokers.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topicPrefix: cfg.KafkaTopicPrefix, logger: logger}
}

// Save publishes row to the table's topic, keyed by the row's key values.
func (w *Writer) Save(ctx context.Context, table string, keys []string, row domain.Row) error {
	msg, err := serializeToMessage(w.topicPrefix+table, table, keys, row)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s row: %w", table, err)
	}
	w.logger.Debug("published row", "topic", msg.Topic, "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message. Rows with the same
// key values share a message key, so they land on the same partition.
func serializeToMessage(topic, table string, keys []string, row domain.Row) (kafkago.Message, error) {
	data, err := json.Marshal(row.Map())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row: %w", table, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(messageKey(keys, row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte(table)},
			{Key: "keys", Value: []byte(strings.Join(keys, ","))},
		},
	}, nil
}

// messageKey joins the row's key values; nil values contribute an empty
// segment.
func messageKey(keys []string, row domain.Row) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := row.Get(k)
		switch v := v.(type) {
		case nil:
		case time.Time:
			parts[i] = v.Format(time.RFC3339Nano)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, "|")
}
