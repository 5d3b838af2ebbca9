// Package delivery maintains the live content connection. A websocket feed
// delivers new items as they appear; on connection loss the feed reconnects
// with capped exponential backoff up to a fixed attempt budget, after which
// it stays down until a manual Connect. Without a configured endpoint the
// feed degrades to a fixed-interval polling generator.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
)

// Processor classifies and scores an inbound item before it reaches the
// handler. Implemented by the pipeline.
type Processor interface {
	Process(ctx context.Context, item domain.RawItem) domain.ClassifiedItem
}

// Handler receives each processed live item.
type Handler func(item domain.ClassifiedItem)

type subscribeMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

type envelope struct {
	Type string          `json:"type"`
	Item *domain.RawItem `json:"item,omitempty"`
}

// LiveFeed owns the live connection and its state machine.
type LiveFeed struct {
	url          string
	dialer       *websocket.Dialer
	processor    Processor
	handler      Handler
	clock        clockwork.Clock
	pollInterval time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu     sync.Mutex
	state  ConnState
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewLiveFeed creates the feed. An empty url selects the polling fallback.
func NewLiveFeed(url string, processor Processor, handler Handler, clock clockwork.Clock, pollInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *LiveFeed {
	return &LiveFeed{
		url:          url,
		dialer:       websocket.DefaultDialer,
		processor:    processor,
		handler:      handler,
		clock:        clock,
		pollInterval: pollInterval,
		logger:       logger,
		metrics:      metrics,
		state:        StateDisconnected,
	}
}

// Connect starts the feed. Calling Connect after the reconnect budget was
// exhausted starts a fresh attempt cycle; calling it while running is a
// no-op.
func (f *LiveFeed) Connect(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	if f.url == "" {
		go f.pollLoop(runCtx)
		return
	}
	go f.run(runCtx)
}

// Disconnect stops the feed and closes any open connection.
func (f *LiveFeed) Disconnect() {
	f.mu.Lock()
	cancel := f.cancel
	conn := f.conn
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// State returns the current connection state.
func (f *LiveFeed) State() ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Send writes a message on the live connection. Errors unless connected.
func (f *LiveFeed) Send(v any) error {
	f.mu.Lock()
	conn := f.conn
	state := f.state
	f.mu.Unlock()

	if state != StateConnected || conn == nil {
		return fmt.Errorf("not connected (state %s)", state)
	}
	return conn.WriteJSON(v)
}

// Online reports whether submissions can currently be delivered live.
func (f *LiveFeed) Online() bool {
	s := f.State()
	return s == StateConnected || s == StatePolling
}

// run is the connect/read/reconnect loop. It owns all state transitions.
func (f *LiveFeed) run(ctx context.Context) {
	defer f.clearCancel()

	attempt := 0
	for {
		f.setState(StateConnecting)

		conn, resp, err := f.dialer.DialContext(ctx, f.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			f.setConn(conn)
			f.setState(StateConnected)
			attempt = 0

			if subErr := f.subscribe(conn); subErr != nil {
				f.logger.Warn("subscribe failed", "error", subErr)
			} else {
				f.readLoop(ctx, conn)
			}
			_ = conn.Close()
			f.setConn(nil)
		} else {
			f.logger.Warn("live feed dial failed", "url", f.url, "error", err)
		}

		if ctx.Err() != nil {
			f.setState(StateDisconnected)
			return
		}

		attempt++
		if attempt > maxReconnectAttempts {
			f.logger.Error("reconnect budget exhausted", "attempts", maxReconnectAttempts)
			f.setState(StateExhausted)
			return
		}

		delay := reconnectDelay(attempt - 1)
		f.logger.Info("scheduling reconnect", "attempt", attempt, "delay", delay)
		f.setState(StateReconnecting)

		select {
		case <-ctx.Done():
			f.setState(StateDisconnected)
			return
		case <-f.clock.After(delay):
		}
	}
}

// subscribe announces topic interest right after connecting.
func (f *LiveFeed) subscribe(conn *websocket.Conn) error {
	return conn.WriteJSON(subscribeMessage{
		Type:   "subscribe",
		Topics: []string{"hazard_items", "alerts"},
	})
}

// readLoop consumes messages until the connection breaks. New content runs
// through the processor before reaching the handler, so live items carry the
// same classification and score as batch items.
func (f *LiveFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				f.logger.Warn("live feed read failed", "error", err)
			}
			return
		}
		if env.Type != "new_content" || env.Item == nil {
			continue
		}
		f.handler(f.processor.Process(ctx, *env.Item))
	}
}

// pollLoop is the fallback when no live endpoint is configured: a synthetic
// item per interval stands in for a periodic provider fetch.
func (f *LiveFeed) pollLoop(ctx context.Context) {
	defer f.clearCancel()
	f.setState(StatePolling)

	ticker := f.clock.NewTicker(f.pollInterval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			f.setState(StateDisconnected)
			return
		case <-ticker.Chan():
			seq++
			item := syntheticItem(f.clock.Now(), seq)
			f.handler(f.processor.Process(ctx, item))
		}
	}
}

// syntheticItem fabricates a plausible report for the polling fallback.
func syntheticItem(now time.Time, seq int) domain.RawItem {
	samples := []struct {
		text string
		geo  domain.Geo
	}{
		{"High waves reported near Marina Beach, fishermen advised caution", domain.Geo{Lat: 13.05, Lon: 80.28}},
		{"Water logging on coastal road after heavy overnight rain", domain.Geo{Lat: 9.93, Lon: 76.26}},
		{"Strong winds and rough sea conditions off Visakhapatnam", domain.Geo{Lat: 17.68, Lon: 83.21}},
	}
	s := samples[seq%len(samples)]
	geo := s.geo

	return domain.RawItem{
		ID:        domain.GenerateItemID("poll", "synthetic", s.text, now),
		Source:    "poll",
		Author:    "synthetic",
		Text:      s.text,
		Timestamp: now,
		Location:  &geo,
	}
}

func (f *LiveFeed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
}

func (f *LiveFeed) clearCancel() {
	f.mu.Lock()
	f.cancel = nil
	f.mu.Unlock()
}

func (f *LiveFeed) setState(to ConnState) {
	f.mu.Lock()
	from := f.state
	if from != to && !canTransition(from, to) {
		f.logger.Warn("unexpected state transition", "from", from.String(), "to", to.String())
	}
	f.state = to
	f.mu.Unlock()
	f.metrics.LiveConnectionState.Set(float64(to))
}

// reconnectDelay doubles per attempt from one second, capped.
func reconnectDelay(attempt int) time.Duration {
	delay := baseReconnectDelay << attempt
	if delay > maxReconnectDelay || delay <= 0 {
		return maxReconnectDelay
	}
	return delay
}
