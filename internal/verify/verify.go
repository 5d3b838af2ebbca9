// Package verify computes field-verification metadata for user submissions:
// upload delay, device-vs-described location agreement, and an optional
// authority advisory check. The metadata only adjusts scoring; it never
// blocks a submission.
package verify

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// Advisor is the authority advisory check. Satisfied by *AuthorityClient.
type Advisor interface {
	Check(ctx context.Context, lat, lon float64, at time.Time) (bool, error)
}

// Verifier builds VerificationMetadata for reports.
type Verifier struct {
	clock          clockwork.Clock
	geocoder       domain.Geocoder // nil disables the location match check
	advisor        Advisor         // nil disables the authority check
	delayThreshold time.Duration
	maxDistanceKM  float64
	logger         *slog.Logger
}

// New creates a verifier. Both geocoder and advisor may be nil; the
// corresponding checks then report unknown/disabled rather than failing.
func New(cfg *config.Config, clock clockwork.Clock, geocoder domain.Geocoder, advisor Advisor, logger *slog.Logger) *Verifier {
	return &Verifier{
		clock:          clock,
		geocoder:       geocoder,
		advisor:        advisor,
		delayThreshold: cfg.VerifyDelayThreshold,
		maxDistanceKM:  cfg.VerifyDistanceKM,
		logger:         logger,
	}
}

// Verify computes the metadata for a report. Every check degrades to its
// neutral value on missing inputs or collaborator failure, so verification
// never prevents a report from being scored.
func (v *Verifier) Verify(ctx context.Context, report domain.Report) domain.VerificationMetadata {
	meta := domain.VerificationMetadata{
		DelayedUpload:   v.delayed(report),
		LocationMatch:   v.locationMatch(ctx, report),
		AuthorityStatus: domain.AuthorityDisabled,
	}

	if v.advisor != nil && report.Location != nil {
		at := report.CapturedAt
		if at.IsZero() {
			at = v.clock.Now()
		}
		active, err := v.advisor.Check(ctx, report.Location.Lat, report.Location.Lon, at)
		switch {
		case err != nil:
			v.logger.Warn("authority check failed", "error", err)
			meta.AuthorityStatus = domain.AuthorityError
		case active:
			meta.AuthorityStatus = domain.AuthorityVerified
		default:
			meta.AuthorityStatus = domain.AuthorityNotVerified
		}
	}

	return meta
}

// delayed reports whether the capture-to-submit gap exceeds the threshold.
// Reports without a capture time cannot be delayed.
func (v *Verifier) delayed(report domain.Report) bool {
	if report.CapturedAt.IsZero() {
		return false
	}
	return v.clock.Now().Sub(report.CapturedAt) > v.delayThreshold
}

// locationMatch compares the device coordinate to the geocoded place hint.
// nil means no comparison was possible; only an explicit mismatch is
// penalized by the scorer.
func (v *Verifier) locationMatch(ctx context.Context, report domain.Report) *bool {
	if v.geocoder == nil || report.Location == nil || report.PlaceHint == "" {
		return nil
	}

	result, err := v.geocoder.Geocode(ctx, report.PlaceHint)
	if err != nil {
		v.logger.Warn("geocode for location match failed", "place", report.PlaceHint, "error", err)
		return nil
	}
	if result.FormattedAddress == "" && result.Lat == 0 && result.Lon == 0 {
		return nil
	}

	distance := haversineKM(report.Location.Lat, report.Location.Lon, result.Lat, result.Lon)
	match := distance <= v.maxDistanceKM
	return &match
}

const earthRadiusKM = 6371.0

// haversineKM is the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
