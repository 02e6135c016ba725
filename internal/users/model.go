package users

import "time"

// User is the authoritative account record. TotalScore and LastSyncedAt are
// written only by the stats sync, Rank only by the rank recomputation pass;
// request handlers never mutate them directly.
type User struct {
	ID       string `gorm:"column:id;primaryKey;size:36;not null"`
	Username string `gorm:"column:username;size:64;uniqueIndex;not null"`
	Name     string `gorm:"column:name;size:190;not null"`
	Email    string `gorm:"column:email;size:320;uniqueIndex;not null"`

	// CollegeID affiliates the account with a college; empty means
	// unaffiliated.
	CollegeID string `gorm:"column:college_id;size:36;index"`

	// Connected platform handles; empty means not connected.
	GitHubUsername     string `gorm:"column:github_username;size:190"`
	LeetCodeUsername   string `gorm:"column:leetcode_username;size:190"`
	HackerRankUsername string `gorm:"column:hackerrank_username;size:190"`

	TotalScore   int        `gorm:"column:total_score;not null;default:0;index"`
	Rank         *int       `gorm:"column:rank"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// HasAnyHandle reports whether at least one platform handle is connected.
func (u User) HasAnyHandle() bool {
	return u.GitHubUsername != "" || u.LeetCodeUsername != "" || u.HackerRankUsername != ""
}
