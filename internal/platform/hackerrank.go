package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultHackerRankBaseURL = "https://www.hackerrank.com"

	// HackerRank has no public API; the scores endpoint the profile page
	// uses rejects requests without a browser user agent.
	hackerRankUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// HackerRankClientConfig describes how to reach the HackerRank scores
// endpoint.
type HackerRankClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HackerRankClient fetches domain stars and badge counts for a HackerRank
// handle.
type HackerRankClient struct {
	baseURL string
	client  *http.Client
}

// NewHackerRankClient constructs a HackerRank metrics client.
func NewHackerRankClient(cfg HackerRankClientConfig) *HackerRankClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHackerRankBaseURL
	}
	return &HackerRankClient{
		baseURL: baseURL,
		client:  newHTTPClient(cfg.Timeout),
	}
}

type hackerRankScoresPayload struct {
	Status *bool           `json:"status"`
	Models json.RawMessage `json:"models"`
}

type hackerRankDomainPayload struct {
	Stars  int `json:"stars"`
	Badges int `json:"badges"`
}

// Fetch returns the normalized metrics for the provided HackerRank handle.
func (h *HackerRankClient) Fetch(ctx context.Context, handle string) (HackerRankMetrics, error) {
	requestURL := fmt.Sprintf("%s/rest/hackers/%s/scores_elo", h.baseURL, handle)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return HackerRankMetrics{}, fmt.Errorf("%w: build hackerrank request: %v", ErrUpstream, err)
	}
	request.Header.Set("User-Agent", hackerRankUserAgent)

	response, err := h.client.Do(request)
	if err != nil {
		return HackerRankMetrics{}, fmt.Errorf("%w: hackerrank request failed: %v", ErrUpstream, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return HackerRankMetrics{}, fmt.Errorf("%w: hackerrank", ErrHandleNotFound)
	}
	if response.StatusCode != http.StatusOK {
		return HackerRankMetrics{}, fmt.Errorf("%w: hackerrank status %d", ErrUpstream, response.StatusCode)
	}

	var payload hackerRankScoresPayload
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return HackerRankMetrics{}, fmt.Errorf("%w: decode hackerrank response: %v", ErrUpstream, err)
	}
	if payload.Status != nil && !*payload.Status {
		return HackerRankMetrics{}, fmt.Errorf("%w: hackerrank", ErrHandleNotFound)
	}

	domains, err := decodeHackerRankDomains(payload.Models)
	if err != nil {
		return HackerRankMetrics{}, err
	}

	metrics := HackerRankMetrics{}
	for _, domain := range domains {
		metrics.Stars += domain.Stars
		metrics.Badges += domain.Badges
	}
	return metrics, nil
}

// The scores endpoint has served the domain list both as a JSON array and as
// an object keyed by domain slug; accept either shape.
func decodeHackerRankDomains(raw json.RawMessage) ([]hackerRankDomainPayload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asList []hackerRankDomainPayload
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	var asMap map[string]hackerRankDomainPayload
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("%w: decode hackerrank domains: %v", ErrUpstream, err)
	}
	domains := make([]hackerRankDomainPayload, 0, len(asMap))
	for _, domain := range asMap {
		domains = append(domains, domain)
	}
	return domains, nil
}
