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

// YouTubeConnector fetches recent videos from a YouTube-compatible search
// API. The search endpoint exposes no view or like counters, so engagement
// stays unknown and contributes nothing to scoring.
type YouTubeConnector struct {
	requester  Requester
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewYouTubeConnector creates the connector.
func NewYouTubeConnector(requester Requester, baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *YouTubeConnector {
	return &YouTubeConnector{
		requester:  requester,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *YouTubeConnector) Name() string { return "youtube" }

// Fetch issues one search per hazard term and unions the results.
func (c *YouTubeConnector) Fetch(ctx context.Context, locationHint string, maxResults int) ([]domain.RawItem, error) {
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

func (c *YouTubeConnector) search(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{
		"part":       {"snippet"},
		"q":          {query},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {"25"},
		"key":        {c.apiKey},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	return c.requester.Do(ctx, c.Name(), requestFingerprint(fullURL), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("youtube API error: status %d: %s", resp.StatusCode, raw)
		}
		return io.ReadAll(resp.Body)
	})
}

func (c *YouTubeConnector) normalize(payload []byte) []domain.RawItem {
	var resp videoSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.Warn("malformed payload dropped", "connector", c.Name(), "error", err)
		return nil
	}

	items := make([]domain.RawItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		if v.ID.VideoID == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
		if err != nil {
			c.logger.Warn("item with bad timestamp dropped", "connector", c.Name(), "id", v.ID.VideoID)
			continue
		}
		text := v.Snippet.Title
		if v.Snippet.Description != "" {
			text += ". " + v.Snippet.Description
		}
		items = append(items, domain.RawItem{
			ID:        "youtube-" + v.ID.VideoID,
			Source:    c.Name(),
			Author:    v.Snippet.ChannelTitle,
			Text:      text,
			Timestamp: ts,
		})
	}
	return items
}

// YouTube API response types.

type videoSearchResponse struct {
	Items []video `json:"items"`
}

type video struct {
	ID      videoID      `json:"id"`
	Snippet videoSnippet `json:"snippet"`
}

type videoID struct {
	VideoID string `json:"videoId"`
}

type videoSnippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}
