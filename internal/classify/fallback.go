package classify

import (
	"strings"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// fallbackKeywords is the fixed keyword table for offline classification.
// A keyword counts as one hit when it appears anywhere in the lower-cased
// text. Multi-word phrases are matched as substrings.
var fallbackKeywords = map[domain.HazardLabel][]string{
	domain.LabelTsunami:        {"tsunami", "tidal wave", "seismic sea wave", "sea receding", "sea pulled back"},
	domain.LabelCyclone:        {"cyclone", "hurricane", "typhoon", "landfall", "deep depression", "gale"},
	domain.LabelStormSurge:     {"storm surge", "surge", "sea water entering", "water level rising"},
	domain.LabelHighWaves:      {"high waves", "huge waves", "giant waves", "rough sea", "swell", "choppy"},
	domain.LabelFlood:          {"flood", "flooding", "inundation", "waterlogging", "submerged", "overflowing"},
	domain.LabelLandslide:      {"landslide", "landslip", "mudslide", "debris flow", "slope failure"},
	domain.LabelEarthquake:     {"earthquake", "quake", "tremor", "seismic", "aftershock", "richter"},
	domain.LabelCoastalErosion: {"erosion", "coastline receding", "shore washed away", "beach disappearing"},
}

const (
	fallbackHitWeight      = 0.3
	fallbackMaxConfidence  = 0.9
	fallbackNoneConfidence = 0.1
)

// FallbackClassify produces a hazard label from keyword hits alone. It is
// deterministic and never fails, guaranteeing the pipeline always yields a
// classification regardless of remote classifier availability. Labels are
// scanned in severity order, so ties resolve to the more severe hazard.
func FallbackClassify(text string) domain.Classification {
	lower := strings.ToLower(text)

	best := domain.Classification{Label: domain.LabelOther, Confidence: fallbackNoneConfidence}
	bestHits := 0
	for _, label := range domain.AllHazardLabels {
		keywords, ok := fallbackKeywords[label]
		if !ok {
			continue // Other has no keywords
		}
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = domain.Classification{
				Label:      label,
				Confidence: min(fallbackHitWeight*float64(hits), fallbackMaxConfidence),
			}
		}
	}
	return best
}
