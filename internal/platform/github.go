package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultGitHubBaseURL = "https://api.github.com"

	// Recent push events cover a bounded activity window, so the summed
	// commit count is scaled up to approximate longer-term volume.
	commitEstimateMultiplier = 10

	pushEventType = "PushEvent"
)

// GitHubClientConfig describes how to reach the GitHub REST API.
type GitHubClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// GitHubClient fetches public profile metrics for a GitHub handle.
type GitHubClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGitHubClient constructs a GitHub metrics client. An empty token is
// allowed and simply runs against the unauthenticated rate limit.
func NewGitHubClient(cfg GitHubClientConfig) *GitHubClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGitHubBaseURL
	}
	return &GitHubClient{
		baseURL: baseURL,
		token:   cfg.Token,
		client:  newHTTPClient(cfg.Timeout),
	}
}

type gitHubUserPayload struct {
	PublicRepos int `json:"public_repos"`
	Followers   int `json:"followers"`
}

type gitHubRepoPayload struct {
	Stars int `json:"stargazers_count"`
}

type gitHubEventPayload struct {
	Type    string `json:"type"`
	Payload struct {
		Commits []struct {
			SHA string `json:"sha"`
		} `json:"commits"`
	} `json:"payload"`
}

// Fetch returns the normalized metrics for the provided GitHub handle.
func (g *GitHubClient) Fetch(ctx context.Context, handle string) (GitHubMetrics, error) {
	var user gitHubUserPayload
	if err := g.getJSON(ctx, fmt.Sprintf("%s/users/%s", g.baseURL, handle), &user); err != nil {
		return GitHubMetrics{}, err
	}

	var repos []gitHubRepoPayload
	if err := g.getJSON(ctx, fmt.Sprintf("%s/users/%s/repos?per_page=100&sort=updated", g.baseURL, handle), &repos); err != nil {
		return GitHubMetrics{}, err
	}
	totalStars := 0
	for _, repo := range repos {
		totalStars += repo.Stars
	}

	// The events endpoint is best effort: when it fails the commit estimate
	// degrades to zero instead of failing the whole fetch.
	commits := 0
	var events []gitHubEventPayload
	if err := g.getJSON(ctx, fmt.Sprintf("%s/users/%s/events/public?per_page=100", g.baseURL, handle), &events); err == nil {
		for _, event := range events {
			if event.Type == pushEventType {
				commits += len(event.Payload.Commits)
			}
		}
		commits *= commitEstimateMultiplier
	}

	return GitHubMetrics{
		Repos:     user.PublicRepos,
		Stars:     totalStars,
		Commits:   commits,
		Followers: user.Followers,
	}, nil
}

func (g *GitHubClient) getJSON(ctx context.Context, requestURL string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build github request: %v", ErrUpstream, err)
	}
	request.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.token != "" {
		request.Header.Set("Authorization", "token "+g.token)
	}

	response, err := g.client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: github request failed: %v", ErrUpstream, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: github", ErrHandleNotFound)
	case response.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: github status %d", ErrUpstream, response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: decode github response: %v", ErrUpstream, err)
	}
	return nil
}
