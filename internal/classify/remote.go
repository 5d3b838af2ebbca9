package classify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/scheduler"
)

// Requester dispatches rate-limited, cached requests. Satisfied by
// *scheduler.Scheduler.
type Requester interface {
	Do(ctx context.Context, source, fingerprint string, fn scheduler.DispatchFunc) ([]byte, error)
}

// RemoteClassifier calls a zero-shot classification endpoint through the
// scheduler, so classifier traffic shares the same throttling, caching, and
// retry treatment as connector traffic.
type RemoteClassifier struct {
	requester  Requester
	source     string // scheduler source name, e.g. "classifier"
	endpoint   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewRemoteClassifier creates a classifier client. source names the
// scheduler bucket the client draws tokens from.
func NewRemoteClassifier(requester Requester, source, endpoint, token string, timeout time.Duration) *RemoteClassifier {
	return &RemoteClassifier{
		requester:  requester,
		source:     source,
		endpoint:   endpoint,
		token:      token,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text            string   `json:"text"`
	CandidateLabels []string `json:"candidate_labels"`
}

// classifyResponse is sorted by the provider: best label first.
type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify sends text with the fixed candidate label set and returns the
// provider's top label. Any transport, status, or decode problem is returned
// as an error; the engine treats every error as "classifier unavailable".
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	labels := make([]string, len(domain.AllHazardLabels))
	for i, l := range domain.AllHazardLabels {
		labels[i] = string(l)
	}

	body, err := json.Marshal(classifyRequest{Text: text, CandidateLabels: labels})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("encode classify request: %w", err)
	}

	payload, err := c.requester.Do(ctx, c.source, fingerprintText(text), func(ctx context.Context) ([]byte, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("classify request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("classifier error: status %d: %s", resp.StatusCode, raw)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return domain.Classification{}, err
	}

	var out classifyResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.Classification{}, fmt.Errorf("decode classify response: %w", err)
	}
	if len(out.Labels) == 0 || len(out.Labels) != len(out.Scores) {
		return domain.Classification{}, fmt.Errorf("malformed classify response: %d labels, %d scores", len(out.Labels), len(out.Scores))
	}
	if !domain.ValidHazardLabel(out.Labels[0]) {
		return domain.Classification{}, fmt.Errorf("classifier returned unknown label %q", out.Labels[0])
	}

	confidence := out.Scores[0]
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.Classification{
		Label:      domain.HazardLabel(out.Labels[0]),
		Confidence: confidence,
	}, nil
}

// fingerprintText keys the scheduler cache by text content, so reclassifying
// identical text within the TTL is free.
func fingerprintText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "classify:" + hex.EncodeToString(hash[:8])
}
