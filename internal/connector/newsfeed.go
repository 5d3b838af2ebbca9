package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// NewsConnector fetches articles from a news aggregation API. Articles have
// no stable provider ID, so IDs are derived from key fields, which also
// deduplicates the same story surfacing under multiple sub-queries.
type NewsConnector struct {
	requester  Requester
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNewsConnector creates the connector.
func NewNewsConnector(requester Requester, baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *NewsConnector {
	return &NewsConnector{
		requester:  requester,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *NewsConnector) Name() string { return "news" }

// Fetch issues one search per hazard term and unions the results.
func (c *NewsConnector) Fetch(ctx context.Context, locationHint string, maxResults int) ([]domain.RawItem, error) {
	var (
		items  []domain.RawItem
		failed int
	)

	for _, term := range hazardQueryTerms {
		query := term
		if locationHint != "" {
			query = term + " " + locationHint
		}

		payload, err := c.search(ctx, query)
		if err != nil {
			c.logger.Warn("sub-query failed", "connector", c.Name(), "term", term, "error", err)
			failed++
			continue
		}
		items = append(items, c.normalize(payload)...)

		if maxResults > 0 && len(items) >= maxResults {
			break
		}
	}

	if failed == len(hazardQueryTerms) {
		return nil, fmt.Errorf("all %d sub-queries failed", failed)
	}
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

func (c *NewsConnector) search(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{
		"q":        {query},
		"sortBy":   {"publishedAt"},
		"pageSize": {"25"},
	}
	fullURL := c.baseURL + "/v2/everything?" + params.Encode()

	return c.requester.Do(ctx, c.Name(), requestFingerprint(fullURL), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("news API error: status %d: %s", resp.StatusCode, raw)
		}
		return io.ReadAll(resp.Body)
	})
}

func (c *NewsConnector) normalize(payload []byte) []domain.RawItem {
	var resp articleSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.Warn("malformed payload dropped", "connector", c.Name(), "error", err)
		return nil
	}

	items := make([]domain.RawItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			c.logger.Warn("item with bad timestamp dropped", "connector", c.Name(), "title", a.Title)
			continue
		}
		text := a.Title
		if a.Description != "" {
			text += ". " + a.Description
		}
		item := domain.RawItem{
			ID:        domain.GenerateItemID(c.Name(), a.Source.Name, a.Title, ts),
			Source:    c.Name(),
			Author:    a.Source.Name,
			Text:      text,
			Timestamp: ts,
		}
		if a.Lat != nil && a.Lon != nil {
			item.Location = &domain.Geo{Lat: *a.Lat, Lon: *a.Lon}
		} else if a.Place != "" {
			item.PlaceHint = a.Place
		}
		items = append(items, item)
	}
	return items
}

// News API response types.

type articleSearchResponse struct {
	Articles []article `json:"articles"`
}

type article struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	PublishedAt string        `json:"publishedAt"`
	Source      articleSource `json:"source"`
	Lat         *float64      `json:"lat"` // optional provider geotag
	Lon         *float64      `json:"lon"`
	Place       string        `json:"place"`
}

type articleSource struct {
	Name string `json:"name"`
}
