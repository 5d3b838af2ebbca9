// Package queue implements the durable offline submission queue. Reports
// that cannot reach the collaborator store are parked here and retried on a
// fixed interval with capped exponential backoff, only while connectivity is
// available. Items are never discarded; only successful delivery removes one.
package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const maxRetryDelay = 30 * time.Second

// Item is one queued submission.
type Item struct {
	ID          string    `json:"id"`
	Payload     []byte    `json:"payload"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	Attempts    int       `json:"attempts"`
	NextRetryAt time.Time `json:"next_retry_at"`
}

// Store persists queue items in enqueue order.
type Store interface {
	Append(ctx context.Context, item Item) error
	// List returns all items in enqueue order.
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, item Item) error
	Remove(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

// DeliverFunc attempts to deliver one queued item.
type DeliverFunc func(ctx context.Context, item Item) error

// Queue drains a Store through a DeliverFunc.
type Queue struct {
	store         Store
	deliver       DeliverFunc
	clock         clockwork.Clock
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics

	online atomic.Bool
	kick   chan struct{}
}

// New creates a queue. The queue starts offline; call SetOnline once
// connectivity is known.
func New(store Store, deliver DeliverFunc, clock clockwork.Clock, flushInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Queue {
	return &Queue{
		store:         store,
		deliver:       deliver,
		clock:         clock,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       metrics,
		kick:          make(chan struct{}, 1),
	}
}

// Enqueue appends a payload with a fresh ID and zero attempts. The item is
// immediately eligible for the next flush pass.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) (Item, error) {
	item := Item{
		ID:         uuid.NewString(),
		Payload:    payload,
		EnqueuedAt: q.clock.Now(),
	}
	if err := q.store.Append(ctx, item); err != nil {
		return Item{}, err
	}
	q.updateDepth(ctx)
	return item, nil
}

// SetOnline records connectivity. Transitioning to online triggers an
// immediate flush pass.
func (q *Queue) SetOnline(online bool) {
	was := q.online.Swap(online)
	if online && !was {
		q.NotifyOnline()
	}
}

// NotifyOnline requests an immediate flush pass without waiting for the
// next tick.
func (q *Queue) NotifyOnline() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Run flushes the queue on the configured interval until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	ticker := q.clock.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			q.Flush(ctx)
		case <-q.kick:
			q.Flush(ctx)
		}
	}
}

// Flush attempts every due item sequentially. Runs only while online; items
// whose retry time has not arrived are skipped until a later pass.
func (q *Queue) Flush(ctx context.Context) {
	if !q.online.Load() {
		return
	}

	items, err := q.store.List(ctx)
	if err != nil {
		q.logger.Error("list queued items failed", "error", err)
		return
	}
	now := q.clock.Now()

	for _, item := range items {
		if item.NextRetryAt.After(now) {
			continue
		}

		if err := q.deliver(ctx, item); err != nil {
			item.Attempts++
			item.NextRetryAt = now.Add(retryDelay(item.Attempts))
			q.metrics.QueueRetries.Inc()
			if updateErr := q.store.Update(ctx, item); updateErr != nil {
				q.logger.Error("update queued item failed", "id", item.ID, "error", updateErr)
			}
			q.logger.Warn("queued delivery failed",
				"id", item.ID, "attempts", item.Attempts, "error", err)
			continue
		}

		if err := q.store.Remove(ctx, item.ID); err != nil {
			q.logger.Error("remove delivered item failed", "id", item.ID, "error", err)
			continue
		}
		q.metrics.QueueDelivered.Inc()
	}

	q.updateDepth(ctx)
}

func (q *Queue) updateDepth(ctx context.Context) {
	if n, err := q.store.Len(ctx); err == nil {
		q.metrics.QueueDepth.Set(float64(n))
	}
}

// retryDelay doubles per attempt from one second, capped at maxRetryDelay.
func retryDelay(attempts int) time.Duration {
	delay := time.Second
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
