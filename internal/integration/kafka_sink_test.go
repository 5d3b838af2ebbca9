//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/couchcryptid/hazard-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

const (
	testItemsTopic  = "test-classified-items"
	testAlertsTopic = "test-alerts"
)

type sinkMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return sinkMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterRoundTrip publishes a classified item and an alert through the
// sink writer against a real broker and verifies keys, headers, and payloads.
func TestWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testItemsTopic)
	createTopic(t, broker, testAlertsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaItemsTopic:  testItemsTopic,
		KafkaAlertsTopic: testAlertsTopic,
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	processedAt := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	item := domain.ClassifiedItem{
		RawItem: domain.RawItem{
			ID:        "twitter-abc123",
			Source:    "twitter",
			Author:    "@coastwatcher",
			Text:      "Cyclone making landfall near Chennai",
			Timestamp: processedAt.Add(-10 * time.Minute),
			Location:  &domain.Geo{Lat: 13.08, Lon: 80.27},
		},
		Classification: domain.Classification{Label: domain.LabelCyclone, Confidence: 0.93},
		Sentiment:      domain.SentimentNegative,
		PriorityScore:  12.7,
		ProcessedAt:    processedAt,
	}
	require.NoError(t, writer.WriteItems(ctx, []domain.ClassifiedItem{item}))

	alert := domain.Alert{
		ID:       "a2a4e5d6-0000-4000-8000-000000000001",
		ItemID:   item.ID,
		Source:   item.Source,
		Label:    item.Classification.Label,
		Score:    item.PriorityScore,
		Location: item.Location,
		IssuedAt: processedAt,
	}
	require.NoError(t, writer.WriteAlerts(ctx, []domain.Alert{alert}))

	// Items topic.
	got := readSink(ctx, t, newConsumer(t, broker, testItemsTopic))
	assert.Equal(t, item.ID, got.Key)
	assert.Equal(t, "Cyclone", got.Headers["label"])
	parsed, err := time.Parse(time.RFC3339, got.Headers["processed_at"])
	require.NoError(t, err)
	assert.True(t, parsed.Equal(processedAt))

	var gotItem domain.ClassifiedItem
	require.NoError(t, json.Unmarshal(got.Value, &gotItem))
	assert.Equal(t, item.Classification, gotItem.Classification)
	assert.Equal(t, item.PriorityScore, gotItem.PriorityScore)
	require.NotNil(t, gotItem.Location)
	assert.Equal(t, 13.08, gotItem.Location.Lat)

	// Alerts topic.
	gotAlert := readSink(ctx, t, newConsumer(t, broker, testAlertsTopic))
	assert.Equal(t, item.ID, gotAlert.Key, "alerts are keyed by the triggering item")
	assert.Equal(t, "Cyclone", gotAlert.Headers["label"])
	assert.Contains(t, gotAlert.Headers, "issued_at")

	var decoded domain.Alert
	require.NoError(t, json.Unmarshal(gotAlert.Value, &decoded))
	assert.Equal(t, alert.ID, decoded.ID)
	assert.Equal(t, 12.7, decoded.Score)
}
