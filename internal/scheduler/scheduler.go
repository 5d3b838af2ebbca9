// Package scheduler mediates every outbound request the pipeline makes.
// It enforces per-source token-bucket throughput limits, deduplicates
// identical in-flight and recently-answered requests, and retries transient
// failures with a bounded, linearly increasing delay.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

// window is the fixed rate-limit window. Buckets refill completely once the
// window has elapsed since its start; this is not a sliding window.
const window = time.Minute

// DispatchFunc performs the actual network call for a scheduled request.
type DispatchFunc func(ctx context.Context) ([]byte, error)

// Scheduler owns the rate buckets and response cache for all sources.
// Exactly one instance exists per process; passing it explicitly keeps the
// shared state visible and testable.
type Scheduler struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	defaultRPM int
	overrides  map[string]int
	cacheTTL   time.Duration
	maxRetries int
	retryBase  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	cache   map[string]cacheEntry
	group   singleflight.Group
}

// bucket is the per-source token state. admitMu serializes admission so
// waiting callers on the same source drain in arrival order; different
// sources never share a bucket.
type bucket struct {
	admitMu     sync.Mutex
	mu          sync.Mutex
	limit       int
	tokens      int
	windowStart time.Time
}

type cacheEntry struct {
	payload  []byte
	storedAt time.Time
}

// New creates a Scheduler from the service configuration.
func New(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		defaultRPM: cfg.RequestsPerMinute,
		overrides:  cfg.RPMOverrides,
		cacheTTL:   cfg.CacheTTL,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBackoff,
		buckets:    make(map[string]*bucket),
		cache:      make(map[string]cacheEntry),
	}
}

// Do executes fn under the source's rate budget. A fresh cached response for
// (source, fingerprint) is returned without consuming a token; otherwise the
// caller blocks until a token is available, fn is dispatched with bounded
// retries, and a successful payload is cached. Concurrent callers with the
// same fingerprint share a single dispatch; a caller whose context ends
// stops waiting without aborting the shared flight.
func (s *Scheduler) Do(ctx context.Context, source, fingerprint string, fn DispatchFunc) ([]byte, error) {
	key := source + "|" + fingerprint

	if payload, ok := s.cacheGet(key); ok {
		s.metrics.SchedulerCacheLookups.WithLabelValues(source, "hit").Inc()
		return payload, nil
	}
	s.metrics.SchedulerCacheLookups.WithLabelValues(source, "miss").Inc()

	// The shared flight runs detached from the caller that started it:
	// one waiter backing out must not fail everyone else on the same
	// fingerprint. Each caller instead abandons the flight individually.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		// A duplicate caller may have populated the cache while this one
		// was waiting to join the flight.
		if payload, ok := s.cacheGet(key); ok {
			return payload, nil
		}
		if err := s.takeToken(flightCtx, source); err != nil {
			return nil, err
		}
		payload, err := s.dispatch(flightCtx, source, fn)
		if err != nil {
			return nil, err
		}
		s.cachePut(key, payload)
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// takeToken blocks until the source's bucket grants a token or ctx is done.
func (s *Scheduler) takeToken(ctx context.Context, source string) error {
	b := s.bucketFor(source)

	b.admitMu.Lock()
	defer b.admitMu.Unlock()

	waited := false
	for {
		b.mu.Lock()
		now := s.clock.Now()
		if now.Sub(b.windowStart) >= window {
			b.tokens = b.limit
			b.windowStart = now
		}
		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := b.windowStart.Add(window).Sub(now)
		b.mu.Unlock()

		if !waited {
			s.metrics.SchedulerThrottleWaits.WithLabelValues(source).Inc()
			waited = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}

// dispatch runs fn with up to maxRetries additional attempts. The delay
// before retry n is n × retryBase.
func (s *Scheduler) dispatch(ctx context.Context, source string, fn DispatchFunc) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.SchedulerRetries.WithLabelValues(source).Inc()
			if !s.sleep(ctx, time.Duration(attempt)*s.retryBase) {
				return nil, ctx.Err()
			}
		}

		payload, err := fn(ctx)
		if err == nil {
			s.metrics.SchedulerDispatches.WithLabelValues(source, "success").Inc()
			return payload, nil
		}
		lastErr = err
		s.metrics.SchedulerDispatches.WithLabelValues(source, "error").Inc()
		s.logger.Warn("dispatch failed", "source", source, "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("dispatch to %s exhausted after %d retries: %w", source, s.maxRetries, lastErr)
}

func (s *Scheduler) bucketFor(source string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[source]
	if !ok {
		limit := s.defaultRPM
		if v, exists := s.overrides[source]; exists {
			limit = v
		}
		b = &bucket{
			limit:       limit,
			tokens:      limit,
			windowStart: s.clock.Now(),
		}
		s.buckets[source] = b
	}
	return b
}

func (s *Scheduler) cacheGet(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if s.clock.Now().Sub(e.storedAt) >= s.cacheTTL {
		delete(s.cache, key) // lazy eviction
		return nil, false
	}
	return e.payload, true
}

func (s *Scheduler) cachePut(key string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{payload: payload, storedAt: s.clock.Now()}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}
