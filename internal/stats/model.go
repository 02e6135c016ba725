package stats

import "time"

// PlatformStats holds the latest raw metrics and per-platform scores for one
// user. At most one row exists per user; absence means the user has never
// been synced. An all-zero row is indistinguishable from "synced with zero
// activity", so callers disambiguate through User.LastSyncedAt and handle
// presence.
type PlatformStats struct {
	UserID string `gorm:"column:user_id;primaryKey;size:36;not null"`

	GitHubRepos     int     `gorm:"column:github_repos;not null;default:0"`
	GitHubStars     int     `gorm:"column:github_stars;not null;default:0"`
	GitHubCommits   int     `gorm:"column:github_commits;not null;default:0"`
	GitHubFollowers int     `gorm:"column:github_followers;not null;default:0"`
	GitHubScore     float64 `gorm:"column:github_score;not null;default:0"`

	LeetCodeSolved int     `gorm:"column:leetcode_solved;not null;default:0"`
	LeetCodeEasy   int     `gorm:"column:leetcode_easy;not null;default:0"`
	LeetCodeMedium int     `gorm:"column:leetcode_medium;not null;default:0"`
	LeetCodeHard   int     `gorm:"column:leetcode_hard;not null;default:0"`
	LeetCodeRating int     `gorm:"column:leetcode_rating;not null;default:0"`
	LeetCodeScore  float64 `gorm:"column:leetcode_score;not null;default:0"`

	HackerRankStars  int     `gorm:"column:hackerrank_stars;not null;default:0"`
	HackerRankBadges int     `gorm:"column:hackerrank_badges;not null;default:0"`
	HackerRankScore  float64 `gorm:"column:hackerrank_score;not null;default:0"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing platform stats.
func (PlatformStats) TableName() string {
	return "platform_stats"
}

// ScoreHistory is an append-only snapshot written on every sync attempt.
// Rows are immutable once written and read back in RecordedAt ascending
// order for trend display. Rank carries the user's rank as it stood before
// the sync that wrote the row; the rank pass runs on its own schedule.
type ScoreHistory struct {
	ID     string `gorm:"column:id;primaryKey;size:36;not null"`
	UserID string `gorm:"column:user_id;size:36;not null;index"`

	TotalScore      int     `gorm:"column:total_score;not null"`
	GitHubScore     float64 `gorm:"column:github_score;not null"`
	LeetCodeScore   float64 `gorm:"column:leetcode_score;not null"`
	HackerRankScore float64 `gorm:"column:hackerrank_score;not null"`
	Rank            *int    `gorm:"column:rank"`

	GitHubRepos     int `gorm:"column:github_repos;not null"`
	GitHubStars     int `gorm:"column:github_stars;not null"`
	LeetCodeSolved  int `gorm:"column:leetcode_solved;not null"`
	HackerRankStars int `gorm:"column:hackerrank_stars;not null"`

	RecordedAt time.Time `gorm:"column:recorded_at;not null;index"`
}

// TableName exposes the table backing score history snapshots.
func (ScoreHistory) TableName() string {
	return "score_history"
}
