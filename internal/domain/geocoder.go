package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-text place hints to coordinates.
type Geocoder interface {
	// Geocode converts a place hint (e.g. "Marina Beach, Chennai") to
	// coordinates. An empty result with a nil error means the provider
	// found nothing.
	Geocode(ctx context.Context, place string) (GeocodingResult, error)
}
