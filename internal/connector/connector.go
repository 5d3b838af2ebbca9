// Package connector pulls hazard-related content from provider APIs and
// normalizes it into RawItems. Every provider request goes through the
// request scheduler, so connectors inherit per-source rate limits, response
// caching, and bounded retries.
package connector

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/scheduler"
)

// hazardQueryTerms is the fixed set of sub-queries each connector issues.
// The union of results is the connector's batch.
var hazardQueryTerms = []string{
	"tsunami",
	"cyclone",
	"storm surge",
	"high waves",
	"coastal flooding",
	"landslide",
	"earthquake",
	"coastal erosion",
}

// Requester dispatches rate-limited, cached requests. Satisfied by
// *scheduler.Scheduler.
type Requester interface {
	Do(ctx context.Context, source, fingerprint string, fn scheduler.DispatchFunc) ([]byte, error)
}

// Connector fetches hazard content from one provider.
type Connector interface {
	// Name is the provider name, used as scheduler source and item Source.
	Name() string
	// Fetch returns up to maxResults normalized items near the location
	// hint. A failing sub-query is skipped; Fetch errors only when every
	// sub-query failed.
	Fetch(ctx context.Context, locationHint string, maxResults int) ([]domain.RawItem, error)
}

// Fanout runs all connectors concurrently and merges their batches. One
// connector's failure never fails the others.
type Fanout struct {
	connectors []Connector
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFanout creates the fan-out coordinator.
func NewFanout(logger *slog.Logger, metrics *observability.Metrics, connectors ...Connector) *Fanout {
	return &Fanout{
		connectors: connectors,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchAll fetches from every connector concurrently, then merges:
// deduplicate by item ID, sort newest first, truncate to maxResults.
// The re-sort makes output deterministic regardless of connector
// completion order.
func (f *Fanout) FetchAll(ctx context.Context, locationHint string, maxResults int) []domain.RawItem {
	var (
		mu    sync.Mutex
		items []domain.RawItem
		wg    sync.WaitGroup
	)

	for _, c := range f.connectors {
		wg.Add(1)
		go func(c Connector) {
			defer wg.Done()

			batch, err := c.Fetch(ctx, locationHint, maxResults)
			if err != nil {
				f.logger.Warn("connector failed", "connector", c.Name(), "error", err)
				f.metrics.ConnectorErrors.WithLabelValues(c.Name()).Inc()
				return
			}
			f.metrics.ItemsFetched.WithLabelValues(c.Name()).Add(float64(len(batch)))

			mu.Lock()
			items = append(items, batch...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	return mergeBatches(items, maxResults)
}

// mergeBatches deduplicates by ID, sorts newest first, and truncates.
func mergeBatches(items []domain.RawItem, maxResults int) []domain.RawItem {
	seen := make(map[string]bool, len(items))
	merged := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}
