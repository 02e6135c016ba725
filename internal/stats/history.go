package stats

import (
	"context"
	"errors"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/users"
	"gorm.io/gorm"
)

const defaultHistoryWindowDays = 30

// HistoryForUser returns the user's score snapshots from the trailing day
// window, oldest first. The ascending order is the read contract for trend
// charts.
func (s *Service) HistoryForUser(ctx context.Context, userID string, days int) ([]ScoreHistory, error) {
	if days <= 0 {
		days = defaultHistoryWindowDays
	}
	since := s.clock().UTC().AddDate(0, 0, -days)

	var snapshots []ScoreHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ?", userID, since).
		Order("recorded_at ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Summary condenses a user's current standing for dashboard display.
// CollegeRank is zero for users without a college affiliation.
type Summary struct {
	CurrentScore  int            `json:"current_score"`
	GlobalRank    int            `json:"global_rank"`
	CollegeRank   int            `json:"college_rank"`
	TotalUsers    int64          `json:"total_users"`
	ScoreChange7d int            `json:"score_change_7d"`
	LastSyncedAt  *time.Time     `json:"last_synced_at"`
	PlatformStats *PlatformStats `json:"platform_stats"`
}

// SummaryForUser returns the current score, rank and the week-over-week
// score delta (last snapshot minus first snapshot inside the 7-day window;
// zero when fewer than two snapshots exist).
func (s *Service) SummaryForUser(ctx context.Context, userID string) (Summary, error) {
	var user users.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Summary{}, ErrUserNotFound
	}
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		CurrentScore: user.TotalScore,
		LastSyncedAt: user.LastSyncedAt,
	}
	if user.Rank != nil {
		summary.GlobalRank = *user.Rank
	}

	if err := s.db.WithContext(ctx).Model(&users.User{}).Count(&summary.TotalUsers).Error; err != nil {
		return Summary{}, err
	}

	// The college rank is computed live against the same ordering the rank
	// pass uses, so it never lags the way the persisted global rank can.
	if user.CollegeID != "" {
		var ahead int64
		err = s.db.WithContext(ctx).Model(&users.User{}).
			Where("college_id = ? AND (total_score > ? OR (total_score = ? AND id < ?))",
				user.CollegeID, user.TotalScore, user.TotalScore, user.ID).
			Count(&ahead).Error
		if err != nil {
			return Summary{}, err
		}
		summary.CollegeRank = int(ahead) + 1
	}

	var currentStats PlatformStats
	err = s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&currentStats).Error
	if err == nil {
		summary.PlatformStats = &currentStats
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Summary{}, err
	}

	weekAgo := s.clock().UTC().AddDate(0, 0, -7)
	var window []ScoreHistory
	err = s.db.WithContext(ctx).
		Select("total_score").
		Where("user_id = ? AND recorded_at >= ?", userID, weekAgo).
		Order("recorded_at ASC").
		Find(&window).Error
	if err != nil {
		return Summary{}, err
	}
	if len(window) >= 2 {
		summary.ScoreChange7d = window[len(window)-1].TotalScore - window[0].TotalScore
	}

	return summary, nil
}
