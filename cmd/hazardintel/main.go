package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/adapter/geocode"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/hazard-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-intel-service/internal/alert"
	"github.com/couchcryptid/hazard-intel-service/internal/classify"
	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/connector"
	"github.com/couchcryptid/hazard-intel-service/internal/delivery"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/pipeline"
	"github.com/couchcryptid/hazard-intel-service/internal/queue"
	"github.com/couchcryptid/hazard-intel-service/internal/scheduler"
	"github.com/couchcryptid/hazard-intel-service/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	sched := scheduler.New(cfg, clock, logger, metrics)

	fanout := connector.NewFanout(logger, metrics, buildConnectors(cfg, sched, logger)...)

	var remote *classify.RemoteClassifier
	if cfg.ClassifierURL != "" {
		remote = classify.NewRemoteClassifier(sched, "classifier", cfg.ClassifierURL, cfg.ClassifierToken, cfg.ClassifierTimeout)
	} else {
		logger.Info("remote classifier disabled, keyword fallback only")
	}
	var multilingual *classify.RemoteClassifier
	if cfg.MultilingualEnabled {
		multilingual = classify.NewRemoteClassifier(sched, "classifier-multilingual", cfg.MultilingualURL, cfg.ClassifierToken, cfg.ClassifierTimeout)
	}
	engine := classify.NewEngine(remote, multilingual, logger, metrics)

	geocoder := buildGeocoder(cfg, logger, metrics)

	var advisor verify.Advisor
	if cfg.AuthorityURL != "" {
		advisor = verify.NewAuthorityClient(cfg.AuthorityURL, cfg.AuthorityTimeout, logger)
	} else {
		logger.Info("authority verification disabled")
	}
	verifier := verify.New(cfg, clock, geocoder, advisor, logger)

	trigger := alert.NewTrigger(cfg.AlertThreshold, clock, logger, metrics)
	writer := kafkaadapter.NewWriter(cfg, logger)

	store, err := buildQueueStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize offline queue store", "error", err)
		os.Exit(1)
	}
	deliver := func(ctx context.Context, item queue.Item) error {
		var classified domain.ClassifiedItem
		if err := json.Unmarshal(item.Payload, &classified); err != nil {
			logger.Error("queued payload is not a classified item, dropping retry", "id", item.ID, "error", err)
			return nil
		}
		return writer.WriteItems(ctx, []domain.ClassifiedItem{classified})
	}
	offlineQueue := queue.New(store, deliver, clock, cfg.QueueFlushInterval, logger, metrics)
	offlineQueue.SetOnline(true)

	p := pipeline.New(cfg, fanout, engine, geocoder, trigger, writer, clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := delivery.NewLiveFeed(cfg.LiveFeedURL, p, p.HandleLive(ctx), clock, cfg.PollInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p.Snapshot(), p, verifier, trigger, writer, offlineQueue,
		cfg.HotspotCellSize, clock, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()
	go offlineQueue.Run(ctx)
	feed.Connect(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	feed.Disconnect()
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildConnectors enables each provider connector only when its credential is
// configured.
func buildConnectors(cfg *config.Config, requester connector.Requester, logger *slog.Logger) []connector.Connector {
	var connectors []connector.Connector
	if cfg.TwitterToken != "" {
		connectors = append(connectors, connector.NewTwitterConnector(requester, cfg.TwitterBaseURL, cfg.TwitterToken, cfg.FetchTimeout, logger))
	}
	if cfg.YouTubeAPIKey != "" {
		connectors = append(connectors, connector.NewYouTubeConnector(requester, cfg.YouTubeBaseURL, cfg.YouTubeAPIKey, cfg.FetchTimeout, logger))
	}
	if cfg.NewsAPIKey != "" {
		connectors = append(connectors, connector.NewNewsConnector(requester, cfg.NewsBaseURL, cfg.NewsAPIKey, cfg.FetchTimeout, logger))
	}
	if len(connectors) == 0 {
		logger.Warn("no provider credentials configured, ingest relies on live feed and reports only")
	}
	return connectors
}

// buildGeocoder assembles the provider chain: primary when a token is
// configured, then the public fallback, wrapped in an LRU cache.
func buildGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	var providers []domain.Geocoder
	if cfg.GeocodePrimaryToken != "" {
		providers = append(providers, geocode.NewPrimaryClient(cfg.GeocodePrimaryURL, cfg.GeocodePrimaryToken, cfg.GeocodeTimeout, logger, metrics))
	}
	providers = append(providers, geocode.NewFallbackClient(cfg.GeocodeFallbackURL, cfg.GeocodeTimeout, logger, metrics))

	chain := geocode.NewChain(logger, providers...)
	return geocode.NewCachedGeocoder(chain, cfg.GeocodeCacheSize, metrics)
}

func buildQueueStore(cfg *config.Config, logger *slog.Logger) (queue.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("offline queue using in-memory store")
		return queue.NewMemoryStore(), nil
	}
	logger.Info("offline queue using redis store")
	return queue.NewRedisStoreFromURL(cfg.RedisURL)
}
