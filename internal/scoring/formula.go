// Package scoring holds the pure score formulas that convert raw platform
// metrics into comparable per-platform scores and a weighted total. Every
// function here is deterministic and free of side effects; the orchestrator
// persists the outputs but never adjusts them.
package scoring

import "math"

// Per-platform ceilings. Each term is a hard cap: input beyond the threshold
// earns no additional score.
const (
	gitHubRepoCap     = 200
	gitHubStarCap     = 300
	gitHubCommitCap   = 400
	gitHubFollowerCap = 100

	leetCodeEasyCap   = 150
	leetCodeMediumCap = 450
	leetCodeHardCap   = 250
	leetCodeRatingCap = 150

	hackerRankStarCap  = 400
	hackerRankBadgeCap = 100
)

// Weighting of the total score: GitHub 40%, LeetCode 40%, HackerRank 20%.
const (
	gitHubMaxScore     = 1000.0
	leetCodeMaxScore   = 1000.0
	hackerRankMaxScore = 500.0

	gitHubWeight     = 40.0
	leetCodeWeight   = 40.0
	hackerRankWeight = 20.0
)

// GitHubScore scores source-control activity. Commits is an estimate derived
// from a bounded recent-events window, not an authoritative count.
func GitHubScore(repos, stars, commits, followers int) float64 {
	repoScore := capped(float64(repos)*2, gitHubRepoCap)
	starScore := capped(float64(stars)*0.5, gitHubStarCap)
	commitScore := capped(float64(commits)*0.1, gitHubCommitCap)
	followerScore := capped(float64(followers), gitHubFollowerCap)
	return repoScore + starScore + commitScore + followerScore
}

// LeetCodeScore scores solved problems by difficulty plus contest rating.
func LeetCodeScore(easy, medium, hard, rating int) float64 {
	easyScore := capped(float64(easy), leetCodeEasyCap)
	mediumScore := capped(float64(medium)*3, leetCodeMediumCap)
	hardScore := capped(float64(hard)*5, leetCodeHardCap)
	ratingScore := capped(float64(rating)*0.15, leetCodeRatingCap)
	return easyScore + mediumScore + hardScore + ratingScore
}

// HackerRankScore scores skill-domain stars and earned badges.
func HackerRankScore(stars, badges int) float64 {
	starScore := capped(float64(stars)*40, hackerRankStarCap)
	badgeScore := capped(float64(badges)*10, hackerRankBadgeCap)
	return starScore + badgeScore
}

// TotalScore normalizes the per-platform scores against their maxima and
// combines them into a single value in [0,100]. A platform that was never
// synced contributes its zero score, not an excluded term, so connecting a
// single platform caps the reachable total at that platform's weight.
func TotalScore(gitHubScore, leetCodeScore, hackerRankScore float64) int {
	normalizedGitHub := gitHubScore / gitHubMaxScore * gitHubWeight
	normalizedLeetCode := leetCodeScore / leetCodeMaxScore * leetCodeWeight
	normalizedHackerRank := hackerRankScore / hackerRankMaxScore * hackerRankWeight
	return int(math.Round(normalizedGitHub + normalizedLeetCode + normalizedHackerRank))
}

func capped(value, ceiling float64) float64 {
	return math.Min(value, ceiling)
}
