package colleges

import "time"

// College groups user accounts for the per-college leaderboard views.
type College struct {
	ID   string `gorm:"column:id;primaryKey;size:36;not null"`
	Name string `gorm:"column:name;size:190;uniqueIndex;not null"`
	City string `gorm:"column:city;size:190;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing college records.
func (College) TableName() string {
	return "colleges"
}
