package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaBrokers     []string
	KafkaItemsTopic  string
	KafkaAlertsTopic string

	// Request scheduler configuration.
	RequestsPerMinute int            // default bucket size for sources without an override
	RPMOverrides      map[string]int // per-source requests-per-minute
	CacheTTL          time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration

	// Classification configuration.
	ClassifierURL       string
	ClassifierToken     string
	ClassifierTimeout   time.Duration
	MultilingualEnabled bool
	MultilingualURL     string

	// Connector configuration.
	TwitterBaseURL  string
	TwitterToken    string
	YouTubeBaseURL  string
	YouTubeAPIKey   string
	NewsBaseURL     string
	NewsAPIKey      string
	FetchTimeout    time.Duration
	FetchMaxResults int
	LocationHint    string // appended to every connector sub-query

	// Geocoding configuration.
	GeocodePrimaryURL   string
	GeocodePrimaryToken string
	GeocodeFallbackURL  string
	GeocodeTimeout      time.Duration
	GeocodeCacheSize    int

	// Authority verification (optional; empty URL disables the check).
	AuthorityURL     string
	AuthorityTimeout time.Duration

	// Spatial aggregation and alerting.
	HotspotCellSize float64 // grid cell size in degrees
	AlertThreshold  float64

	// Field verification thresholds.
	VerifyDelayThreshold time.Duration
	VerifyDistanceKM     float64

	// Delivery and resilience.
	LiveFeedURL        string // empty enables the polling fallback
	PollInterval       time.Duration
	QueueFlushInterval time.Duration
	RedisURL           string // empty selects the in-memory queue store
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("SCHEDULER_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	retryBackoff, err := envDuration("SCHEDULER_RETRY_BACKOFF", time.Second)
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := envDuration("CLASSIFIER_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := envDuration("GEOCODE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	authorityTimeout, err := envDuration("AUTHORITY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	verifyDelay, err := envDuration("VERIFY_DELAY_THRESHOLD", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := envDuration("POLL_INTERVAL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	flushInterval, err := envDuration("QUEUE_FLUSH_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	rpm, err := envInt("SCHEDULER_RPM_DEFAULT", 30)
	if err != nil {
		return nil, err
	}
	overrides, err := parseRPMOverrides(os.Getenv("SCHEDULER_RPM_OVERRIDES"))
	if err != nil {
		return nil, err
	}
	maxRetries, err := envInt("SCHEDULER_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	maxResults, err := envInt("FETCH_MAX_RESULTS", 50)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cellSize, err := envFloat("HOTSPOT_CELL_SIZE", 0.05)
	if err != nil {
		return nil, err
	}
	alertThreshold, err := envFloat("ALERT_THRESHOLD", 12.0)
	if err != nil {
		return nil, err
	}
	verifyDistance, err := envFloat("VERIFY_DISTANCE_KM", 25.0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaItemsTopic:  envOrDefault("KAFKA_ITEMS_TOPIC", "classified-hazard-items"),
		KafkaAlertsTopic: envOrDefault("KAFKA_ALERTS_TOPIC", "hazard-alerts"),

		RequestsPerMinute: rpm,
		RPMOverrides:      overrides,
		CacheTTL:          cacheTTL,
		MaxRetries:        maxRetries,
		RetryBackoff:      retryBackoff,

		ClassifierURL:       os.Getenv("CLASSIFIER_URL"),
		ClassifierToken:     os.Getenv("CLASSIFIER_TOKEN"),
		ClassifierTimeout:   classifierTimeout,
		MultilingualEnabled: os.Getenv("MULTILINGUAL_ENABLED") == "true",
		MultilingualURL:     os.Getenv("MULTILINGUAL_CLASSIFIER_URL"),

		TwitterBaseURL:  envOrDefault("TWITTER_BASE_URL", "https://api.twitter.com"),
		TwitterToken:    os.Getenv("TWITTER_BEARER_TOKEN"),
		YouTubeBaseURL:  envOrDefault("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		YouTubeAPIKey:   os.Getenv("YOUTUBE_API_KEY"),
		NewsBaseURL:     envOrDefault("NEWS_BASE_URL", "https://newsapi.org"),
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		LocationHint:    os.Getenv("FETCH_LOCATION_HINT"),
		FetchTimeout:    fetchTimeout,
		FetchMaxResults: maxResults,

		GeocodePrimaryURL:   envOrDefault("GEOCODE_PRIMARY_URL", "https://api.mapbox.com/geocoding/v5/mapbox.places"),
		GeocodePrimaryToken: os.Getenv("GEOCODE_PRIMARY_TOKEN"),
		GeocodeFallbackURL:  envOrDefault("GEOCODE_FALLBACK_URL", "https://nominatim.openstreetmap.org"),
		GeocodeTimeout:      geocodeTimeout,
		GeocodeCacheSize:    cacheSize,

		AuthorityURL:     os.Getenv("AUTHORITY_URL"),
		AuthorityTimeout: authorityTimeout,

		HotspotCellSize: cellSize,
		AlertThreshold:  alertThreshold,

		VerifyDelayThreshold: verifyDelay,
		VerifyDistanceKM:     verifyDistance,

		LiveFeedURL:        os.Getenv("LIVE_FEED_URL"),
		PollInterval:       pollInterval,
		QueueFlushInterval: flushInterval,
		RedisURL:           os.Getenv("REDIS_URL"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaItemsTopic == "" {
		return nil, errors.New("KAFKA_ITEMS_TOPIC is required")
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, errors.New("SCHEDULER_RPM_DEFAULT must be positive")
	}
	if cfg.HotspotCellSize <= 0 {
		return nil, errors.New("HOTSPOT_CELL_SIZE must be positive")
	}
	if cfg.MultilingualEnabled && cfg.MultilingualURL == "" {
		return nil, errors.New("MULTILINGUAL_ENABLED is true but MULTILINGUAL_CLASSIFIER_URL is not set")
	}

	return cfg, nil
}

// RPMFor returns the requests-per-minute budget for a source, falling back to
// the default when no override exists.
func (c *Config) RPMFor(source string) int {
	if v, ok := c.RPMOverrides[source]; ok {
		return v
	}
	return c.RequestsPerMinute
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

// parseRPMOverrides parses "source=rpm" pairs, e.g. "twitter=15,youtube=10".
func parseRPMOverrides(s string) (map[string]int, error) {
	overrides := make(map[string]int)
	if s == "" {
		return overrides, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid SCHEDULER_RPM_OVERRIDES entry: %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCHEDULER_RPM_OVERRIDES value: %q", pair)
		}
		overrides[strings.TrimSpace(key)] = n
	}
	return overrides, nil
}
