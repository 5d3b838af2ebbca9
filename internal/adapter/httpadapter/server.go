// Package httpadapter exposes the service's HTTP surface: health, readiness,
// and metrics endpoints, GeoJSON feature views over the current working set,
// and the user report submission endpoint.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/queue"
	"github.com/couchcryptid/hazard-intel-service/internal/spatial"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// WorkingSet provides read access to the current classified items and accepts
// out-of-cycle additions from report submissions.
type WorkingSet interface {
	Add(item domain.ClassifiedItem)
	Items() []domain.ClassifiedItem
}

// Processor runs a raw item through classification, enrichment, and scoring,
// folding the supplied verification evidence into the score.
type Processor interface {
	ProcessVerified(ctx context.Context, item domain.RawItem, verification domain.VerificationMetadata) domain.ClassifiedItem
}

// ReportVerifier computes field-verification metadata for a user report.
type ReportVerifier interface {
	Verify(ctx context.Context, report domain.Report) domain.VerificationMetadata
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

// Enqueuer accepts payloads for deferred delivery when the sink is down.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload []byte) (queue.Item, error)
}

// Server exposes the HTTP API.
type Server struct {
	httpServer *http.Server

	ready      ReadinessChecker
	workingSet WorkingSet
	processor  Processor
	verifier   ReportVerifier
	trigger    AlertTrigger
	sink       Sink
	queue      Enqueuer

	cellSize float64
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewServer creates an HTTP server with health, metrics, feature, and report
// routes.
func NewServer(addr string, ready ReadinessChecker, workingSet WorkingSet, processor Processor, verifier ReportVerifier, trigger AlertTrigger, sink Sink, enqueuer Enqueuer, cellSize float64, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ready:      ready,
		workingSet: workingSet,
		processor:  processor,
		verifier:   verifier,
		trigger:    trigger,
		sink:       sink,
		queue:      enqueuer,
		cellSize:   cellSize,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /features/points", s.handlePoints)
	mux.HandleFunc("GET /features/heat", s.handleHeat)
	mux.HandleFunc("GET /features/hotspots", s.handleHotspots)
	mux.HandleFunc("POST /reports", s.handleReport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePoints(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, spatial.ToPointFeatures(s.workingSet.Items()))
}

func (s *Server) handleHeat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, spatial.ToHeatFeatures(s.workingSet.Items()))
}

func (s *Server) handleHotspots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, spatial.ToHotspotFeatures(s.workingSet.Items(), s.cellSize))
}

// handleReport ingests a user field submission. The report is classified and
// scored inline, with verification evidence folded into the score. A sink
// failure is not an error for the submitter: the item is parked on the
// offline queue and the response says so.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var report domain.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.metrics.ReportsReceived.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report body"})
		return
	}
	if strings.TrimSpace(report.Text) == "" {
		s.metrics.ReportsReceived.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	verification := s.verifier.Verify(ctx, report)
	item := s.processor.ProcessVerified(ctx, report.ToRawItem(s.clock.Now()), verification)

	s.workingSet.Add(item)

	if err := s.sink.WriteItems(ctx, []domain.ClassifiedItem{item}); err != nil {
		s.logger.Warn("sink unavailable, queueing report", "id", item.ID, "error", err)

		payload, merr := json.Marshal(item)
		if merr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "serialize report"})
			return
		}
		if _, qerr := s.queue.Enqueue(ctx, payload); qerr != nil {
			s.logger.Error("enqueue report failed", "id", item.ID, "error", qerr)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report could not be stored"})
			return
		}

		s.metrics.ReportsReceived.WithLabelValues("queued").Inc()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "queued",
			"id":     item.ID,
		})
		return
	}

	if a, ok := s.trigger.Evaluate(item); ok {
		if err := s.sink.WriteAlerts(ctx, []domain.Alert{a}); err != nil {
			s.logger.Error("publish report alert failed", "id", item.ID, "error", err)
		}
	}

	s.metrics.ReportsReceived.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":         "accepted",
		"id":             item.ID,
		"label":          item.Classification.Label,
		"priority_score": item.PriorityScore,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
