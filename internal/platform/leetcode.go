package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultLeetCodeBaseURL = "https://leetcode.com"

// LeetCode has no official public API; the profile data comes from the same
// GraphQL endpoint the site itself queries.
const leetCodeProfileQuery = `
query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStats {
      acSubmissionNum {
        difficulty
        count
      }
    }
    profile {
      ranking
    }
  }
}`

// LeetCodeClientConfig describes how to reach the LeetCode GraphQL endpoint.
type LeetCodeClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LeetCodeClient fetches solved-problem counts and contest rating for a
// LeetCode handle.
type LeetCodeClient struct {
	baseURL string
	client  *http.Client
}

// NewLeetCodeClient constructs a LeetCode metrics client.
func NewLeetCodeClient(cfg LeetCodeClientConfig) *LeetCodeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLeetCodeBaseURL
	}
	return &LeetCodeClient{
		baseURL: baseURL,
		client:  newHTTPClient(cfg.Timeout),
	}
}

type leetCodeGraphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type leetCodeGraphQLResponse struct {
	Data struct {
		MatchedUser *struct {
			SubmitStats struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStats"`
			Profile struct {
				Ranking int `json:"ranking"`
			} `json:"profile"`
		} `json:"matchedUser"`
	} `json:"data"`
}

// Fetch returns the normalized metrics for the provided LeetCode handle.
func (l *LeetCodeClient) Fetch(ctx context.Context, handle string) (LeetCodeMetrics, error) {
	payload, err := json.Marshal(leetCodeGraphQLRequest{
		Query:     leetCodeProfileQuery,
		Variables: map[string]string{"username": handle},
	})
	if err != nil {
		return LeetCodeMetrics{}, fmt.Errorf("%w: encode leetcode query: %v", ErrUpstream, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return LeetCodeMetrics{}, fmt.Errorf("%w: build leetcode request: %v", ErrUpstream, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Referer", l.baseURL)

	response, err := l.client.Do(request)
	if err != nil {
		return LeetCodeMetrics{}, fmt.Errorf("%w: leetcode request failed: %v", ErrUpstream, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return LeetCodeMetrics{}, fmt.Errorf("%w: leetcode", ErrHandleNotFound)
	}
	if response.StatusCode != http.StatusOK {
		return LeetCodeMetrics{}, fmt.Errorf("%w: leetcode status %d", ErrUpstream, response.StatusCode)
	}

	var decoded leetCodeGraphQLResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return LeetCodeMetrics{}, fmt.Errorf("%w: decode leetcode response: %v", ErrUpstream, err)
	}

	matched := decoded.Data.MatchedUser
	if matched == nil {
		// GraphQL reports an unknown handle as a null matchedUser, not 404.
		return LeetCodeMetrics{}, fmt.Errorf("%w: leetcode", ErrHandleNotFound)
	}

	metrics := LeetCodeMetrics{Rating: matched.Profile.Ranking}
	for _, bucket := range matched.SubmitStats.AcSubmissionNum {
		switch bucket.Difficulty {
		case "All":
			metrics.Solved = bucket.Count
		case "Easy":
			metrics.Easy = bucket.Count
		case "Medium":
			metrics.Medium = bucket.Count
		case "Hard":
			metrics.Hard = bucket.Count
		}
	}
	return metrics, nil
}
