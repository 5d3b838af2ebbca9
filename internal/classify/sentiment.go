package classify

import (
	"strings"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// Fixed polarity word lists. Coarse by design: hazard posts skew negative,
// and the sentiment signal only nudges map styling, not scoring.
var (
	positiveWords = map[string]bool{
		"safe": true, "rescued": true, "relief": true, "calm": true,
		"normal": true, "improving": true, "subsided": true, "receded": true,
		"thankful": true, "grateful": true, "recovered": true, "good": true,
	}
	negativeWords = map[string]bool{
		"danger": true, "dangerous": true, "warning": true, "destroyed": true,
		"damage": true, "damaged": true, "death": true, "dead": true,
		"killed": true, "trapped": true, "stranded": true, "missing": true,
		"emergency": true, "severe": true, "panic": true, "fear": true,
		"scary": true, "terrible": true, "worst": true, "devastating": true,
	}
)

// AnalyzeSentiment counts polarity words and returns whichever side is
// strictly larger, Neutral otherwise.
func AnalyzeSentiment(text string) domain.Sentiment {
	positive, negative := 0, 0
	for _, token := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(token, ".,!?;:\"'()#@")
		switch {
		case positiveWords[word]:
			positive++
		case negativeWords[word]:
			negative++
		}
	}

	switch {
	case positive > negative:
		return domain.SentimentPositive
	case negative > positive:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
