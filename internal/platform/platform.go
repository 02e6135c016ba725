// Package platform contains the outbound clients that turn a user-supplied
// handle into a normalized raw-metrics record for one external coding
// platform. Clients only read from the remote API; they never touch
// persisted state.
package platform

import (
	"errors"
	"net/http"
	"time"
)

// Sentinel errors shared by all platform clients. Callers distinguish a
// handle the remote platform does not know (terminal, reported upward) from
// any other network or parse failure (absorbed as zero metrics for a cycle).
var (
	ErrHandleNotFound = errors.New("platform handle not found")
	ErrUpstream       = errors.New("platform upstream failure")
)

const defaultFetchTimeout = 15 * time.Second

// GitHubMetrics is the normalized source-control record. Commits is an
// estimate derived from recent public push events, not a lifetime count.
type GitHubMetrics struct {
	Repos     int
	Stars     int
	Commits   int
	Followers int
}

// LeetCodeMetrics is the normalized competitive-judge record.
type LeetCodeMetrics struct {
	Solved int
	Easy   int
	Medium int
	Hard   int
	Rating int
}

// HackerRankMetrics is the normalized skills-assessment record.
type HackerRankMetrics struct {
	Stars  int
	Badges int
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}
