package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

// FallbackClient implements domain.Geocoder against a Nominatim-style open
// geocoding API. Used when the primary provider fails or is unconfigured.
type FallbackClient struct {
	httpClient *retryablehttp.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFallbackClient creates the fallback geocoding client.
func NewFallbackClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *FallbackClient {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = 1
	client.Logger = nil

	return &FallbackClient{
		httpClient: client,
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Geocode converts a place hint to coordinates via the open provider.
func (c *FallbackClient) Geocode(ctx context.Context, place string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {place},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "hazard-intel-service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("fallback", "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("fallback geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("fallback", "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.GeocodingResult{}, fmt.Errorf("fallback geocoding error: status %d: %s", resp.StatusCode, body)
	}

	var out []fallbackResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("fallback", "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(out) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("fallback", "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("fallback", "success").Inc()

	r := out[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}

	return domain.GeocodingResult{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: r.DisplayName,
		PlaceName:        r.Name,
		Confidence:       r.Importance,
	}, nil
}

// Fallback provider response types. Coordinates arrive as strings.

type fallbackResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Importance  float64 `json:"importance"`
}
