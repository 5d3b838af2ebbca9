package geocode

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// Chain tries each geocoder in order, returning the first usable result.
// A provider error or empty result moves on to the next provider; the chain
// only errors when every provider erred.
type Chain struct {
	providers []domain.Geocoder
	logger    *slog.Logger
}

// NewChain creates a geocoder chain. Nil providers are skipped, so callers
// can pass an unconfigured primary without special-casing.
func NewChain(logger *slog.Logger, providers ...domain.Geocoder) *Chain {
	kept := make([]domain.Geocoder, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Chain{providers: kept, logger: logger}
}

// Geocode resolves the place hint through the provider chain.
func (c *Chain) Geocode(ctx context.Context, place string) (domain.GeocodingResult, error) {
	var lastErr error
	for _, p := range c.providers {
		result, err := p.Geocode(ctx, place)
		if err != nil {
			c.logger.Warn("geocode provider failed, trying next", "place", place, "error", err)
			lastErr = err
			continue
		}
		if result.FormattedAddress != "" || result.Lat != 0 || result.Lon != 0 {
			return result, nil
		}
	}
	return domain.GeocodingResult{}, lastErr
}
