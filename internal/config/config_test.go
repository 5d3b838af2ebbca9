package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "classified-hazard-items", cfg.KafkaItemsTopic)
	assert.Equal(t, "hazard-alerts", cfg.KafkaAlertsTopic)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Empty(t, cfg.RPMOverrides)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 50, cfg.FetchMaxResults)
	assert.Equal(t, 0.05, cfg.HotspotCellSize)
	assert.Equal(t, 12.0, cfg.AlertThreshold)
	assert.Equal(t, 30*time.Minute, cfg.VerifyDelayThreshold)
	assert.Equal(t, 25.0, cfg.VerifyDistanceKM)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.QueueFlushInterval)
	assert.False(t, cfg.MultilingualEnabled)
	assert.Empty(t, cfg.LiveFeedURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ITEMS_TOPIC", "custom-items")
	t.Setenv("SCHEDULER_RPM_DEFAULT", "60")
	t.Setenv("SCHEDULER_RPM_OVERRIDES", "twitter=15, youtube=10")
	t.Setenv("SCHEDULER_CACHE_TTL", "90s")
	t.Setenv("SCHEDULER_MAX_RETRIES", "5")
	t.Setenv("HOTSPOT_CELL_SIZE", "0.1")
	t.Setenv("ALERT_THRESHOLD", "14.5")
	t.Setenv("LIVE_FEED_URL", "wss://feed.example.com/ws")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-items", cfg.KafkaItemsTopic)
	assert.Equal(t, 60, cfg.RequestsPerMinute)
	assert.Equal(t, map[string]int{"twitter": 15, "youtube": 10}, cfg.RPMOverrides)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 0.1, cfg.HotspotCellSize)
	assert.Equal(t, 14.5, cfg.AlertThreshold)
	assert.Equal(t, "wss://feed.example.com/ws", cfg.LiveFeedURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty brokers", "KAFKA_BROKERS", " , "},
		{"zero rpm", "SCHEDULER_RPM_DEFAULT", "0"},
		{"negative cell size", "HOTSPOT_CELL_SIZE", "-0.05"},
		{"invalid duration", "SCHEDULER_CACHE_TTL", "not-a-duration"},
		{"negative duration", "POLL_INTERVAL", "-5s"},
		{"invalid retries", "SCHEDULER_MAX_RETRIES", "three"},
		{"malformed override", "SCHEDULER_RPM_OVERRIDES", "twitter:15"},
		{"zero override", "SCHEDULER_RPM_OVERRIDES", "twitter=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MultilingualRequiresURL(t *testing.T) {
	t.Setenv("MULTILINGUAL_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MULTILINGUAL_CLASSIFIER_URL", "https://inference.example.com/multilingual")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MultilingualEnabled)
}

func TestRPMFor(t *testing.T) {
	cfg := &Config{
		RequestsPerMinute: 30,
		RPMOverrides:      map[string]int{"twitter": 15},
	}

	assert.Equal(t, 15, cfg.RPMFor("twitter"))
	assert.Equal(t, 30, cfg.RPMFor("youtube"))
}
