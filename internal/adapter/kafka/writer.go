// Package kafka publishes finalized items and alerts to the collaborator
// store's topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// Writer produces classified items and alert records to their Kafka topics.
// It implements pipeline.Sink.
type Writer struct {
	items  *kafkago.Writer
	alerts *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates producers for the configured topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	newTopicWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Writer{
		items:  newTopicWriter(cfg.KafkaItemsTopic),
		alerts: newTopicWriter(cfg.KafkaAlertsTopic),
		logger: logger,
	}
}

// WriteItems serializes and publishes a batch of classified items in a
// single WriteMessages call.
func (w *Writer) WriteItems(ctx context.Context, items []domain.ClassifiedItem) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(items))
	for i := range items {
		msg, err := serializeItem(items[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.items.WriteMessages(ctx, msgs...)
}

// WriteAlerts publishes alert records.
func (w *Writer) WriteAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeAlert(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.alerts.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	if err := w.items.Close(); err != nil {
		return err
	}
	return w.alerts.Close()
}

// serializeItem marshals a classified item into a Kafka message keyed by
// item ID, so replays of the same item land in the same partition.
func serializeItem(item domain.ClassifiedItem) (kafkago.Message, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize classified item: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(item.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "label", Value: []byte(item.Classification.Label)},
			{Key: "processed_at", Value: []byte(item.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

// serializeAlert marshals an alert into a Kafka message keyed by the
// originating item ID.
func serializeAlert(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ItemID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "label", Value: []byte(alert.Label)},
			{Key: "issued_at", Value: []byte(alert.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
