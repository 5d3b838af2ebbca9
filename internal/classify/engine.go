// Package classify turns free text into hazard classifications, entities,
// and sentiment. Remote zero-shot inference is preferred; a deterministic
// keyword fallback guarantees a label when the remote path is unavailable.
package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

var errSecondaryUnavailable = errors.New("secondary regional classifier not configured")

// Engine routes classification between the remote classifiers and the
// keyword fallback based on detected language and availability.
type Engine struct {
	remote       *RemoteClassifier // nil when CLASSIFIER_URL is unset
	multilingual *RemoteClassifier // nil unless multilingual mode is on
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewEngine creates the classification engine. Either classifier may be nil;
// classification still succeeds through the fallback.
func NewEngine(remote, multilingual *RemoteClassifier, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		remote:       remote,
		multilingual: multilingual,
		logger:       logger,
		metrics:      metrics,
	}
}

// Classify never fails: remote paths are best-effort and every miss lands in
// the deterministic keyword fallback.
func (e *Engine) Classify(ctx context.Context, text string) domain.Classification {
	lang := DetectLanguage(text)

	switch {
	case lang == LangEnglish:
		if e.remote != nil {
			c, err := e.remote.Classify(ctx, text)
			if err == nil {
				e.metrics.ItemsClassified.Inc()
				return c
			}
			e.logger.Warn("remote classification failed, using fallback", "error", err)
		}
	case SupportedMultilingual(lang) && e.multilingual != nil:
		c, err := e.multilingual.Classify(ctx, text)
		if err == nil {
			e.metrics.ItemsClassified.Inc()
			return c
		}
		e.logger.Warn("multilingual classification failed", "lang", lang, "error", err)

		c, err = e.secondaryClassify(ctx, lang, text)
		if err == nil {
			e.metrics.ItemsClassified.Inc()
			return c
		}
	}

	e.metrics.ItemsClassified.Inc()
	e.metrics.ClassifierFallbacks.Inc()
	return FallbackClassify(text)
}

// secondaryClassify is the placeholder for a regional-language model behind
// the multilingual endpoint. It currently reports unavailable so callers
// proceed to the keyword fallback.
func (e *Engine) secondaryClassify(_ context.Context, _ Language, _ string) (domain.Classification, error) {
	return domain.Classification{}, errSecondaryUnavailable
}

// DeriveEngagement passes provider counters through unchanged. Items whose
// provider exposes no counters keep Known=false; no synthetic values are
// invented, so scores remain reproducible.
func DeriveEngagement(item domain.RawItem) domain.Engagement {
	return item.Engagement
}
