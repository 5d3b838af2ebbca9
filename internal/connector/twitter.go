package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// TwitterConnector fetches recent posts from a Twitter-compatible search API.
type TwitterConnector struct {
	requester  Requester
	baseURL    string
	bearer     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwitterConnector creates the connector.
func NewTwitterConnector(requester Requester, baseURL, bearer string, timeout time.Duration, logger *slog.Logger) *TwitterConnector {
	return &TwitterConnector{
		requester:  requester,
		baseURL:    baseURL,
		bearer:     bearer,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *TwitterConnector) Name() string { return "twitter" }

// Fetch issues one search per hazard term and unions the results.
func (c *TwitterConnector) Fetch(ctx context.Context, locationHint string, maxResults int) ([]domain.RawItem, error) {
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

func (c *TwitterConnector) search(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{
		"query":        {query},
		"max_results":  {"25"},
		"tweet.fields": {"created_at,public_metrics,author_id,geo"},
		"expansions":   {"geo.place_id"},
		"place.fields": {"full_name"},
	}
	fullURL := c.baseURL + "/2/tweets/search/recent?" + params.Encode()

	return c.requester.Do(ctx, c.Name(), requestFingerprint(fullURL), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.bearer)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("twitter API error: status %d: %s", resp.StatusCode, raw)
		}
		return io.ReadAll(resp.Body)
	})
}

// normalize maps the provider payload into RawItems. Malformed entries are
// dropped, the rest of the batch continues.
func (c *TwitterConnector) normalize(payload []byte) []domain.RawItem {
	var resp tweetSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.Warn("malformed payload dropped", "connector", c.Name(), "error", err)
		return nil
	}

	placeNames := make(map[string]string, len(resp.Includes.Places))
	for _, p := range resp.Includes.Places {
		placeNames[p.ID] = p.FullName
	}

	items := make([]domain.RawItem, 0, len(resp.Data))
	for _, tw := range resp.Data {
		if tw.ID == "" || tw.Text == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tw.CreatedAt)
		if err != nil {
			c.logger.Warn("item with bad timestamp dropped", "connector", c.Name(), "id", tw.ID)
			continue
		}

		item := domain.RawItem{
			ID:        "twitter-" + tw.ID,
			Source:    c.Name(),
			Author:    tw.AuthorID,
			Text:      tw.Text,
			Timestamp: ts,
			Engagement: domain.Engagement{
				Likes:    tw.PublicMetrics.LikeCount,
				Shares:   tw.PublicMetrics.RetweetCount,
				Comments: tw.PublicMetrics.ReplyCount,
				Known:    true,
			},
		}
		if tw.Geo != nil {
			// Point coordinates are [lon, lat] in the provider payload.
			if pt := tw.Geo.Coordinates; pt != nil && len(pt.Coordinates) == 2 {
				item.Location = &domain.Geo{Lat: pt.Coordinates[1], Lon: pt.Coordinates[0]}
			} else if name, ok := placeNames[tw.Geo.PlaceID]; ok {
				item.PlaceHint = name
			}
		}
		items = append(items, item)
	}
	return items
}

// Twitter API response types.

type tweetSearchResponse struct {
	Data     []tweet       `json:"data"`
	Includes tweetIncludes `json:"includes"`
}

type tweetIncludes struct {
	Places []tweetPlace `json:"places"`
}

type tweetPlace struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

type tweet struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	AuthorID      string       `json:"author_id"`
	CreatedAt     string       `json:"created_at"`
	PublicMetrics tweetMetrics `json:"public_metrics"`
	Geo           *tweetGeo    `json:"geo"`
}

type tweetGeo struct {
	PlaceID     string      `json:"place_id"`
	Coordinates *tweetPoint `json:"coordinates"`
}

type tweetPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

type tweetMetrics struct {
	LikeCount    int `json:"like_count"`
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
}

// requestFingerprint keys the scheduler cache by the full request URL.
func requestFingerprint(fullURL string) string {
	hash := sha256.Sum256([]byte(fullURL))
	return hex.EncodeToString(hash[:8])
}
