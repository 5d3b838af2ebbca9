// Package pipeline orchestrates the ingest cycle: fan-out fetch, classify
// and score, refresh the spatial snapshot, evaluate alerts, and publish to
// the collaborator store. Live feed items join the same processing path
// through Process.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/classify"
	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/score"
)

// Fetcher pulls one merged batch of raw items from all connectors.
type Fetcher interface {
	FetchAll(ctx context.Context, locationHint string, maxResults int) []domain.RawItem
}

// Classifier resolves text to a hazard classification. Never fails.
type Classifier interface {
	Classify(ctx context.Context, text string) domain.Classification
}

// AlertTrigger evaluates a scored item against the alert threshold.
type AlertTrigger interface {
	Evaluate(item domain.ClassifiedItem) (domain.Alert, bool)
}

// Sink persists finalized items and alerts.
type Sink interface {
	WriteItems(ctx context.Context, items []domain.ClassifiedItem) error
	WriteAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Snapshot is the latest processed working set, read by the HTTP feature
// views and replaced wholesale each cycle.
type Snapshot struct {
	mu    sync.RWMutex
	items []domain.ClassifiedItem
}

// Set replaces the working set.
func (s *Snapshot) Set(items []domain.ClassifiedItem) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Add appends one item, used for live feed arrivals between cycles.
func (s *Snapshot) Add(item domain.ClassifiedItem) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

// Items returns a copy of the working set.
func (s *Snapshot) Items() []domain.ClassifiedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ClassifiedItem, len(s.items))
	copy(out, s.items)
	return out
}

// Pipeline runs the periodic ingest cycle.
type Pipeline struct {
	fetcher    Fetcher
	classifier Classifier
	geocoder   domain.Geocoder // nil disables place hint resolution
	trigger    AlertTrigger
	sink       Sink
	snapshot   *Snapshot
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	locationHint string
	maxResults   int
	interval     time.Duration

	ready atomic.Bool
}

// New creates a pipeline.
func New(cfg *config.Config, fetcher Fetcher, classifier Classifier, geocoder domain.Geocoder, trigger AlertTrigger, sink Sink, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:      fetcher,
		classifier:   classifier,
		geocoder:     geocoder,
		trigger:      trigger,
		sink:         sink,
		snapshot:     &Snapshot{},
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		locationHint: cfg.LocationHint,
		maxResults:   cfg.FetchMaxResults,
		interval:     cfg.PollInterval,
	}
}

// Snapshot returns the holder the HTTP layer reads feature views from.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.snapshot
}

// CheckReadiness returns nil once the pipeline has completed a cycle.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed an ingest cycle yet")
	}
	return nil
}

// Run executes ingest cycles until the context is cancelled. The first
// cycle starts immediately; subsequent cycles follow the poll interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"interval", p.interval, "max_results", p.maxResults)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.runCycle(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.runCycle(ctx)
		}
	}
}

// runCycle performs one fetch-process-publish pass.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := p.clock.Now()

	raw := p.fetcher.FetchAll(ctx, p.locationHint, p.maxResults)
	if ctx.Err() != nil {
		return
	}

	processed := make([]domain.ClassifiedItem, 0, len(raw))
	for _, item := range raw {
		processed = append(processed, p.Process(ctx, item))
	}

	p.snapshot.Set(processed)

	var alerts []domain.Alert
	for _, item := range processed {
		if a, ok := p.trigger.Evaluate(item); ok {
			alerts = append(alerts, a)
		}
	}

	if err := p.sink.WriteItems(ctx, processed); err != nil {
		p.logger.Error("publish items failed", "count", len(processed), "error", err)
	} else {
		p.metrics.ItemsProduced.Add(float64(len(processed)))
	}
	if err := p.sink.WriteAlerts(ctx, alerts); err != nil {
		p.logger.Error("publish alerts failed", "count", len(alerts), "error", err)
	}

	p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("ingest cycle complete",
		"items", len(processed), "alerts", len(alerts))
}

// Process classifies, enriches, and scores one item. It never fails: the
// classification engine guarantees a label and every enrichment step
// degrades to a neutral value. Implements delivery.Processor.
func (p *Pipeline) Process(ctx context.Context, item domain.RawItem) domain.ClassifiedItem {
	// Provider content carries no field-verification evidence.
	return p.ProcessVerified(ctx, item, domain.VerificationMetadata{AuthorityStatus: domain.AuthorityDisabled})
}

// ProcessVerified is Process with caller-supplied verification evidence, for
// report submissions that are verified before scoring. The score is computed
// and observed exactly once.
func (p *Pipeline) ProcessVerified(ctx context.Context, item domain.RawItem, verification domain.VerificationMetadata) domain.ClassifiedItem {
	classification := p.classifier.Classify(ctx, item.Text)
	entities := classify.ExtractEntities(item.Text)
	sentiment := classify.AnalyzeSentiment(item.Text)
	engagement := classify.DeriveEngagement(item)

	if item.Location == nil && item.PlaceHint != "" && p.geocoder != nil {
		if result, err := p.geocoder.Geocode(ctx, item.PlaceHint); err == nil && (result.Lat != 0 || result.Lon != 0) {
			item.Location = &domain.Geo{Lat: result.Lat, Lon: result.Lon}
		}
	}

	priority := score.Score(classification, entities, engagement, verification)
	p.metrics.PriorityScores.Observe(priority)

	return domain.ClassifiedItem{
		RawItem:        item,
		Classification: classification,
		Entities:       entities,
		Sentiment:      sentiment,
		Verification:   verification,
		PriorityScore:  priority,
		ProcessedAt:    p.clock.Now(),
	}
}

// HandleLive folds a live feed item into the working set and alert path.
// Used as the delivery handler.
func (p *Pipeline) HandleLive(ctx context.Context) func(item domain.ClassifiedItem) {
	return func(item domain.ClassifiedItem) {
		p.snapshot.Add(item)

		if err := p.sink.WriteItems(ctx, []domain.ClassifiedItem{item}); err != nil {
			p.logger.Error("publish live item failed", "id", item.ID, "error", err)
		} else {
			p.metrics.ItemsProduced.Inc()
		}

		if a, ok := p.trigger.Evaluate(item); ok {
			if err := p.sink.WriteAlerts(ctx, []domain.Alert{a}); err != nil {
				p.logger.Error("publish live alert failed", "id", item.ID, "error", err)
			}
		}
	}
}
