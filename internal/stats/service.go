// Package stats implements the per-user sync orchestrator: it fans out to
// the platform fetchers, converts the results through the score formulas and
// persists the stats snapshot, the history record and the refreshed total in
// one transaction.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/platform"
	"github.com/codeclimb/codeclimb-backend/internal/scoring"
	"github.com/codeclimb/codeclimb-backend/internal/users"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound indicates the sync target does not exist.
	ErrUserNotFound = errors.New("stats: user not found")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "stats.service.new"
	opSyncUser   = "stats.sync_user"
	opSyncAll    = "stats.sync_all"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// GitHubFetcher fetches source-control metrics for a handle.
type GitHubFetcher interface {
	Fetch(ctx context.Context, handle string) (platform.GitHubMetrics, error)
}

// LeetCodeFetcher fetches judge metrics for a handle.
type LeetCodeFetcher interface {
	Fetch(ctx context.Context, handle string) (platform.LeetCodeMetrics, error)
}

// HackerRankFetcher fetches assessment metrics for a handle.
type HackerRankFetcher interface {
	Fetch(ctx context.Context, handle string) (platform.HackerRankMetrics, error)
}

// IDProvider issues identifiers for history snapshots.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the sync orchestrator.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger

	GitHub     GitHubFetcher
	LeetCode   LeetCodeFetcher
	HackerRank HackerRankFetcher

	// FetchTimeout bounds each individual platform fetch.
	FetchTimeout time.Duration
}

// Service coordinates platform fetches, scoring and persistence for a user.
type Service struct {
	db           *gorm.DB
	clock        func() time.Time
	idProvider   IDProvider
	logger       *zap.Logger
	github       GitHubFetcher
	leetcode     LeetCodeFetcher
	hackerrank   HackerRankFetcher
	fetchTimeout time.Duration
}

const defaultFetchTimeout = 15 * time.Second

// NewService constructs the sync orchestrator. The fetchers may be nil, in
// which case the corresponding platform always contributes zero metrics.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Service{
		db:           cfg.Database,
		clock:        clock,
		idProvider:   cfg.IDProvider,
		logger:       logger,
		github:       cfg.GitHub,
		leetcode:     cfg.LeetCode,
		hackerrank:   cfg.HackerRank,
		fetchTimeout: fetchTimeout,
	}, nil
}

// ScoreBreakdown is the result of a single sync: per-platform scores plus
// the weighted total that was persisted.
type ScoreBreakdown struct {
	GitHubScore     float64 `json:"github_score"`
	LeetCodeScore   float64 `json:"leetcode_score"`
	HackerRankScore float64 `json:"hackerrank_score"`
	TotalScore      int     `json:"total_score"`
}

// SyncUser fetches every connected platform for the user, scores the
// results and persists the outcome. A failed platform fetch degrades to
// zero metrics for that platform only; the sync itself still succeeds.
func (s *Service) SyncUser(ctx context.Context, userID string) (ScoreBreakdown, error) {
	var user users.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ScoreBreakdown{}, ErrUserNotFound
	}
	if err != nil {
		return ScoreBreakdown{}, newServiceError(opSyncUser, "user_load_failed", err)
	}

	metrics := s.fetchAll(ctx, user)

	breakdown := ScoreBreakdown{
		GitHubScore:     scoring.GitHubScore(metrics.github.Repos, metrics.github.Stars, metrics.github.Commits, metrics.github.Followers),
		LeetCodeScore:   scoring.LeetCodeScore(metrics.leetcode.Easy, metrics.leetcode.Medium, metrics.leetcode.Hard, metrics.leetcode.Rating),
		HackerRankScore: scoring.HackerRankScore(metrics.hackerrank.Stars, metrics.hackerrank.Badges),
	}
	breakdown.TotalScore = scoring.TotalScore(breakdown.GitHubScore, breakdown.LeetCodeScore, breakdown.HackerRankScore)

	snapshotID, err := s.idProvider.NewID()
	if err != nil {
		return ScoreBreakdown{}, newServiceError(opSyncUser, "id_generation_failed", err)
	}

	syncedAt := s.clock().UTC()
	record := PlatformStats{
		UserID:           user.ID,
		GitHubRepos:      metrics.github.Repos,
		GitHubStars:      metrics.github.Stars,
		GitHubCommits:    metrics.github.Commits,
		GitHubFollowers:  metrics.github.Followers,
		GitHubScore:      breakdown.GitHubScore,
		LeetCodeSolved:   metrics.leetcode.Solved,
		LeetCodeEasy:     metrics.leetcode.Easy,
		LeetCodeMedium:   metrics.leetcode.Medium,
		LeetCodeHard:     metrics.leetcode.Hard,
		LeetCodeRating:   metrics.leetcode.Rating,
		LeetCodeScore:    breakdown.LeetCodeScore,
		HackerRankStars:  metrics.hackerrank.Stars,
		HackerRankBadges: metrics.hackerrank.Badges,
		HackerRankScore:  breakdown.HackerRankScore,
	}

	// The snapshot captures the rank as it stood before this sync; the rank
	// pass runs on its own schedule and corrects it next cycle.
	snapshot := ScoreHistory{
		ID:              snapshotID,
		UserID:          user.ID,
		TotalScore:      breakdown.TotalScore,
		GitHubScore:     breakdown.GitHubScore,
		LeetCodeScore:   breakdown.LeetCodeScore,
		HackerRankScore: breakdown.HackerRankScore,
		Rank:            user.Rank,
		GitHubRepos:     metrics.github.Repos,
		GitHubStars:     metrics.github.Stars,
		LeetCodeSolved:  metrics.leetcode.Solved,
		HackerRankStars: metrics.hackerrank.Stars,
		RecordedAt:      syncedAt,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(&record).Error; err != nil {
			return newServiceError(opSyncUser, "stats_upsert_failed", err)
		}
		if err := tx.Model(&users.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"total_score":    breakdown.TotalScore,
			"last_synced_at": syncedAt,
		}).Error; err != nil {
			return newServiceError(opSyncUser, "user_update_failed", err)
		}
		if err := tx.Create(&snapshot).Error; err != nil {
			return newServiceError(opSyncUser, "history_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opSyncUser, "persist_failed", txErr, zap.String("user_id", user.ID))
		return ScoreBreakdown{}, txErr
	}

	s.logger.Info("user stats synced",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Int("total_score", breakdown.TotalScore))
	return breakdown, nil
}

type fetchedMetrics struct {
	github     platform.GitHubMetrics
	leetcode   platform.LeetCodeMetrics
	hackerrank platform.HackerRankMetrics
}

// fetchAll runs the three platform fetches concurrently and waits for all of
// them. A fetch failure is logged and leaves that platform's metrics at
// zero; it never fails the group or blocks a sibling fetch.
func (s *Service) fetchAll(ctx context.Context, user users.User) fetchedMetrics {
	var metrics fetchedMetrics
	group, groupCtx := errgroup.WithContext(ctx)

	if user.GitHubUsername != "" && s.github != nil {
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, s.fetchTimeout)
			defer cancel()
			fetched, err := s.github.Fetch(fetchCtx, user.GitHubUsername)
			if err != nil {
				s.logDegradedFetch(user, "github", user.GitHubUsername, err)
				return nil
			}
			metrics.github = fetched
			return nil
		})
	}
	if user.LeetCodeUsername != "" && s.leetcode != nil {
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, s.fetchTimeout)
			defer cancel()
			fetched, err := s.leetcode.Fetch(fetchCtx, user.LeetCodeUsername)
			if err != nil {
				s.logDegradedFetch(user, "leetcode", user.LeetCodeUsername, err)
				return nil
			}
			metrics.leetcode = fetched
			return nil
		})
	}
	if user.HackerRankUsername != "" && s.hackerrank != nil {
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, s.fetchTimeout)
			defer cancel()
			fetched, err := s.hackerrank.Fetch(fetchCtx, user.HackerRankUsername)
			if err != nil {
				s.logDegradedFetch(user, "hackerrank", user.HackerRankUsername, err)
				return nil
			}
			metrics.hackerrank = fetched
			return nil
		})
	}

	_ = group.Wait()
	return metrics
}

// SyncReport aggregates the outcome of a bulk sync pass.
type SyncReport struct {
	Attempted int
	Synced    int
	Failed    int
}

// SyncAll syncs every user with at least one connected handle. Individual
// failures are isolated and counted; no transaction spans multiple users.
func (s *Service) SyncAll(ctx context.Context) (SyncReport, error) {
	var accounts []users.User
	err := s.db.WithContext(ctx).
		Where("github_username <> '' OR leetcode_username <> '' OR hackerrank_username <> ''").
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return SyncReport{}, newServiceError(opSyncAll, "user_list_failed", err)
	}

	report := SyncReport{Attempted: len(accounts)}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return report, newServiceError(opSyncAll, "cancelled", ctx.Err())
		}
		if _, err := s.SyncUser(ctx, account.ID); err != nil {
			report.Failed++
			s.logError(opSyncAll, "user_sync_failed", err,
				zap.String("user_id", account.ID),
				zap.String("username", account.Username))
			continue
		}
		report.Synced++
	}

	s.logger.Info("bulk stats sync completed",
		zap.Int("attempted", report.Attempted),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) logDegradedFetch(user users.User, platformName, handle string, err error) {
	s.logger.Warn("platform fetch degraded to zero metrics",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("platform", platformName),
		zap.String("handle", handle),
		zap.Error(err))
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("stats service error", attrs...)
}
