// Package score derives the priority score of a classified hazard item. The
// scorer is a pure function so identical inputs always produce an identical
// score, which downstream alerting and map rendering rely on.
package score

import (
	"math"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// labelSeverity is the base contribution of each hazard category.
var labelSeverity = map[domain.HazardLabel]float64{
	domain.LabelTsunami:        10,
	domain.LabelEarthquake:     9,
	domain.LabelCyclone:        8,
	domain.LabelFlood:          7,
	domain.LabelStormSurge:     6,
	domain.LabelLandslide:      5,
	domain.LabelHighWaves:      4,
	domain.LabelCoastalErosion: 3,
	domain.LabelOther:          1,
}

const (
	confidenceWeight        = 5
	locationEntityWeight    = 2
	delayedUploadPenalty    = 2
	locationMismatchPenalty = 3
	authorityAdjustment     = 3
)

// Score combines classification, entities, engagement, and verification
// metadata into a single non-negative priority, rounded to one decimal.
// Terms are strictly additive:
//
//   - base severity by label
//   - confidence x 5
//   - 2 per Location entity
//   - log10(1 + likes + shares + comments), zero when counters are unknown
//   - -2 for a delayed upload
//   - -3 for an explicit location mismatch (unknown is not penalized)
//   - +3 authority-verified, -3 authority-rejected, 0 disabled or errored
func Score(c domain.Classification, entities []domain.Entity, eng domain.Engagement, v domain.VerificationMetadata) float64 {
	s := labelSeverity[c.Label]
	s += c.Confidence * confidenceWeight

	for _, e := range entities {
		if e.Type == domain.EntityLocation {
			s += locationEntityWeight
		}
	}

	if eng.Known {
		s += math.Log10(1 + float64(eng.Likes+eng.Shares+eng.Comments))
	}

	if v.DelayedUpload {
		s -= delayedUploadPenalty
	}
	if v.LocationMatch != nil && !*v.LocationMatch {
		s -= locationMismatchPenalty
	}
	switch v.AuthorityStatus {
	case domain.AuthorityVerified:
		s += authorityAdjustment
	case domain.AuthorityNotVerified:
		s -= authorityAdjustment
	}

	if s < 0 {
		s = 0
	}
	return math.Round(s*10) / 10
}
