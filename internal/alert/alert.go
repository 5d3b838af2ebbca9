// Package alert watches scored items and emits an alert record when an
// item's priority crosses the configured threshold. Each item triggers at
// most once per process lifetime.
package alert

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

// Trigger evaluates items against the alert threshold.
type Trigger struct {
	threshold float64
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu   sync.Mutex
	seen map[string]bool // item IDs that already alerted
}

// NewTrigger creates a trigger.
func NewTrigger(threshold float64, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Trigger {
	return &Trigger{
		threshold: threshold,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		seen:      make(map[string]bool),
	}
}

// Evaluate returns an alert for the item when its score reaches the
// threshold and the item has not alerted before.
func (t *Trigger) Evaluate(item domain.ClassifiedItem) (domain.Alert, bool) {
	if item.PriorityScore < t.threshold {
		return domain.Alert{}, false
	}

	t.mu.Lock()
	if t.seen[item.ID] {
		t.mu.Unlock()
		return domain.Alert{}, false
	}
	t.seen[item.ID] = true
	t.mu.Unlock()

	a := domain.Alert{
		ID:       uuid.NewString(),
		ItemID:   item.ID,
		Source:   item.Source,
		Label:    item.Classification.Label,
		Score:    item.PriorityScore,
		Location: item.Location,
		IssuedAt: t.clock.Now(),
	}
	t.metrics.AlertsEmitted.Inc()
	t.logger.Info("alert triggered",
		"item_id", item.ID, "label", string(a.Label), "score", a.Score)
	return a, true
}
