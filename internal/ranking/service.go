// Package ranking maintains the global rank order. The rank pass runs on its
// own schedule, decoupled from any single user's sync, so a rank read
// shortly after a sync may lag that sync's score until the next pass.
package ranking

import (
	"context"
	"fmt"

	"github.com/codeclimb/codeclimb-backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceConfig describes the dependencies of the ranking service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service recomputes dense global ranks and serves leaderboard reads.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the ranking service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("ranking: database connection required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// RecomputeRanks orders every user by total score descending and assigns
// dense 1-based ranks. Equal scores are tie-broken by ascending user id so
// the ordering is deterministic regardless of how the store returns rows.
// Only the rank column is touched.
func (s *Service) RecomputeRanks(ctx context.Context) error {
	var accounts []users.User
	err := s.db.WithContext(ctx).
		Select("id").
		Order("total_score DESC, id ASC").
		Find(&accounts).Error
	if err != nil {
		return fmt.Errorf("ranking: load users: %w", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, account := range accounts {
			rank := position + 1
			if err := tx.Model(&users.User{}).Where("id = ?", account.ID).Update("rank", rank).Error; err != nil {
				return fmt.Errorf("ranking: persist rank for user %s: %w", account.ID, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.logger.Info("global ranks recomputed", zap.Int("users", len(accounts)))
	return nil
}

// LeaderboardEntry is one row of the global leaderboard.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	CollegeID       string  `json:"college_id,omitempty"`
	CollegeName     string  `json:"college_name,omitempty"`
	TotalScore      int     `json:"total_score"`
	GitHubScore     float64 `json:"github_score"`
	LeetCodeScore   float64 `json:"leetcode_score"`
	HackerRankScore float64 `json:"hackerrank_score"`
}

// Leaderboard is a paginated slice of the global ordering.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

// LeaderboardQuery selects one page of the leaderboard. A non-empty
// CollegeID narrows the board to that college's members.
type LeaderboardQuery struct {
	Limit     int
	Offset    int
	CollegeID string
}

// GetLeaderboard returns a page of users ordered by total score descending
// with the same id tie-break the rank pass uses, joined with their latest
// per-platform scores. Ranks are positional within the requested ordering,
// never the persisted rank column: the page ordering matches what the next
// rank pass would write, and a single source keeps the numbers monotonic on
// every page even when some rows were created after the last pass. On a
// college-filtered board the position is the rank within that college.
func (s *Service) GetLeaderboard(ctx context.Context, query LeaderboardQuery) (Leaderboard, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	countQuery := s.db.WithContext(ctx).Model(&users.User{})
	if query.CollegeID != "" {
		countQuery = countQuery.Where("college_id = ?", query.CollegeID)
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return Leaderboard{}, fmt.Errorf("ranking: count users: %w", err)
	}

	var rows []struct {
		ID              string
		Username        string
		Name            string
		CollegeID       string
		CollegeName     string
		TotalScore      int
		GitHubScore     float64
		LeetCodeScore   float64
		HackerRankScore float64
	}
	pageQuery := s.db.WithContext(ctx).
		Table("users").
		Select(`users.id, users.username, users.name, users.total_score,
			users.college_id, COALESCE(colleges.name, '') AS college_name,
			COALESCE(platform_stats.github_score, 0) AS git_hub_score,
			COALESCE(platform_stats.leetcode_score, 0) AS leet_code_score,
			COALESCE(platform_stats.hackerrank_score, 0) AS hacker_rank_score`).
		Joins("LEFT JOIN platform_stats ON platform_stats.user_id = users.id").
		Joins("LEFT JOIN colleges ON colleges.id = users.college_id")
	if query.CollegeID != "" {
		pageQuery = pageQuery.Where("users.college_id = ?", query.CollegeID)
	}
	err := pageQuery.
		Order("users.total_score DESC, users.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return Leaderboard{}, fmt.Errorf("ranking: load leaderboard page: %w", err)
	}

	board := Leaderboard{
		Entries: make([]LeaderboardEntry, 0, len(rows)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for position, row := range rows {
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:            offset + position + 1,
			UserID:          row.ID,
			Username:        row.Username,
			Name:            row.Name,
			CollegeID:       row.CollegeID,
			CollegeName:     row.CollegeName,
			TotalScore:      row.TotalScore,
			GitHubScore:     row.GitHubScore,
			LeetCodeScore:   row.LeetCodeScore,
			HackerRankScore: row.HackerRankScore,
		})
	}
	return board, nil
}
