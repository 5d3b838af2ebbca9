package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// AuthorityClient queries the advisory service for an active hazard advisory
// near a coordinate at a point in time.
type AuthorityClient struct {
	endpoint   string
	httpClient *retryablehttp.Client
	logger     *slog.Logger
}

// NewAuthorityClient creates an advisory service client. Transient failures
// are retried by the underlying client before an error surfaces.
func NewAuthorityClient(endpoint string, timeout time.Duration, logger *slog.Logger) *AuthorityClient {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = 2
	client.Logger = nil

	return &AuthorityClient{
		endpoint:   endpoint,
		httpClient: client,
		logger:     logger,
	}
}

type advisoryRequest struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
}

type advisoryResponse struct {
	Active bool `json:"active"`
}

// Check reports whether an official advisory was active at the coordinate
// and time.
func (c *AuthorityClient) Check(ctx context.Context, lat, lon float64, at time.Time) (bool, error) {
	body, err := json.Marshal(advisoryRequest{Lat: lat, Lon: lon, Time: at})
	if err != nil {
		return false, fmt.Errorf("encode advisory request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create advisory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("advisory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("advisory service error: status %d: %s", resp.StatusCode, raw)
	}

	var out advisoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode advisory response: %w", err)
	}
	return out.Active, nil
}
