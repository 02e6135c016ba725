// Package scheduler drives the two periodic jobs: the low-frequency
// full-population stats sync and the higher-frequency rank recomputation.
// The two tickers are independent and uncoordinated, so a rank read shortly
// after a sync may lag until the next rank pass.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/stats"
	"go.uber.org/zap"
)

// StatsSyncer runs a bulk sync over every connected user.
type StatsSyncer interface {
	SyncAll(ctx context.Context) (stats.SyncReport, error)
}

// RankRecomputer reassigns global ranks over the whole population.
type RankRecomputer interface {
	RecomputeRanks(ctx context.Context) error
}

// Config describes the scheduler's collaborators and cadence.
type Config struct {
	Syncer       StatsSyncer
	Ranker       RankRecomputer
	SyncInterval time.Duration
	RankInterval time.Duration
	Logger       *zap.Logger
}

// Scheduler owns the periodic trigger loop.
type Scheduler struct {
	syncer       StatsSyncer
	ranker       RankRecomputer
	syncInterval time.Duration
	rankInterval time.Duration
	logger       *zap.Logger
}

const (
	defaultSyncInterval = 24 * time.Hour
	defaultRankInterval = time.Hour
)

// New constructs a scheduler. Zero intervals fall back to the defaults
// (daily sync, hourly rank pass).
func New(cfg Config) (*Scheduler, error) {
	if cfg.Syncer == nil {
		return nil, fmt.Errorf("scheduler: stats syncer required")
	}
	if cfg.Ranker == nil {
		return nil, fmt.Errorf("scheduler: rank recomputer required")
	}
	syncInterval := cfg.SyncInterval
	if syncInterval <= 0 {
		syncInterval = defaultSyncInterval
	}
	rankInterval := cfg.RankInterval
	if rankInterval <= 0 {
		rankInterval = defaultRankInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		syncer:       cfg.Syncer,
		ranker:       cfg.Ranker,
		syncInterval: syncInterval,
		rankInterval: rankInterval,
		logger:       logger,
	}, nil
}

// Run blocks until the context is cancelled, firing the sync and rank jobs
// on their own tickers. An initial rank pass runs at startup so a fresh
// deployment serves ranked leaderboards immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	syncTicker := time.NewTicker(s.syncInterval)
	rankTicker := time.NewTicker(s.rankInterval)
	defer syncTicker.Stop()
	defer rankTicker.Stop()

	s.logger.Info("scheduler running",
		zap.Duration("sync_interval", s.syncInterval),
		zap.Duration("rank_interval", s.rankInterval))

	s.recomputeRanks(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-syncTicker.C:
			s.syncAll(ctx)
		case <-rankTicker.C:
			s.recomputeRanks(ctx)
		}
	}
}

func (s *Scheduler) syncAll(ctx context.Context) {
	report, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.logger.Error("scheduled stats sync failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled stats sync finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed))
}

func (s *Scheduler) recomputeRanks(ctx context.Context) {
	if err := s.ranker.RecomputeRanks(ctx); err != nil {
		s.logger.Error("scheduled rank recomputation failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled rank recomputation finished")
}
