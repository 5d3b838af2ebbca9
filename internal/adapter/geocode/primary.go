// Package geocode resolves free-text place hints to coordinates using a
// primary commercial provider with an open-data fallback, behind an LRU
// cache so repeated hints (popular beaches, city names) cost one lookup.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

// PrimaryClient implements domain.Geocoder against a Mapbox-style forward
// geocoding API.
type PrimaryClient struct {
	token      string
	httpClient *retryablehttp.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewPrimaryClient creates the primary geocoding client.
func NewPrimaryClient(baseURL, token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *PrimaryClient {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = 2
	client.Logger = nil

	return &PrimaryClient{
		token:      token,
		httpClient: client,
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Geocode converts a place hint to coordinates. An empty result with a nil
// error means the provider found nothing.
func (c *PrimaryClient) Geocode(ctx context.Context, place string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(place))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,poi"},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("primary", "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("primary", "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.GeocodingResult{}, fmt.Errorf("geocoding API error: status %d: %s", resp.StatusCode, body)
	}

	var out primaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("primary", "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("primary", "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("primary", "success").Inc()

	f := out.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

// Primary provider response types.

type primaryResponse struct {
	Features []primaryFeature `json:"features"`
}

type primaryFeature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
