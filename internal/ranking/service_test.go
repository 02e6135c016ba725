package ranking

import (
	"context"
	"testing"

	"github.com/codeclimb/codeclimb-backend/internal/colleges"
	"github.com/codeclimb/codeclimb-backend/internal/stats"
	"github.com/codeclimb/codeclimb-backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &stats.PlatformStats{}, &colleges.College{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create ranking service: %v", err)
	}
	return service
}

func seedScoredUser(t *testing.T, db *gorm.DB, id, username string, totalScore int) {
	t.Helper()
	user := users.User{
		ID:         id,
		Username:   username,
		Name:       username,
		Email:      username + "@example.com",
		TotalScore: totalScore,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func loadRank(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var user users.User
	if err := db.Where("id = ?", id).Take(&user).Error; err != nil {
		t.Fatalf("failed to load user %s: %v", id, err)
	}
	if user.Rank == nil {
		t.Fatalf("expected user %s to be ranked", id)
	}
	return *user.Rank
}

func TestRecomputeRanksAssignsDensePermutation(t *testing.T) {
	db := newTestDatabase(t)
	seedScoredUser(t, db, "user-a", "alpha", 10)
	seedScoredUser(t, db, "user-b", "bravo", 90)
	seedScoredUser(t, db, "user-c", "charlie", 50)
	seedScoredUser(t, db, "user-d", "delta", 70)

	service := newTestService(t, db)
	if err := service.RecomputeRanks(context.Background()); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	ranks := map[string]int{
		"user-b": loadRank(t, db, "user-b"),
		"user-d": loadRank(t, db, "user-d"),
		"user-c": loadRank(t, db, "user-c"),
		"user-a": loadRank(t, db, "user-a"),
	}
	expected := map[string]int{"user-b": 1, "user-d": 2, "user-c": 3, "user-a": 4}
	for id, want := range expected {
		if ranks[id] != want {
			t.Fatalf("expected rank %d for %s, got %d", want, id, ranks[id])
		}
	}

	seen := map[int]bool{}
	for _, rank := range ranks {
		if rank < 1 || rank > len(ranks) {
			t.Fatalf("rank %d outside 1..%d", rank, len(ranks))
		}
		if seen[rank] {
			t.Fatalf("duplicate rank %d", rank)
		}
		seen[rank] = true
	}
}

func TestRecomputeRanksBreaksTiesByUserID(t *testing.T) {
	db := newTestDatabase(t)
	seedScoredUser(t, db, "user-b", "bravo", 50)
	seedScoredUser(t, db, "user-a", "alpha", 50)

	service := newTestService(t, db)
	if err := service.RecomputeRanks(context.Background()); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	if loadRank(t, db, "user-a") != 1 || loadRank(t, db, "user-b") != 2 {
		t.Fatalf("expected id-ascending tie-break, got a=%d b=%d",
			loadRank(t, db, "user-a"), loadRank(t, db, "user-b"))
	}
}

func TestRecomputeRanksLeavesOtherColumnsAlone(t *testing.T) {
	db := newTestDatabase(t)
	seedScoredUser(t, db, "user-a", "alpha", 42)

	service := newTestService(t, db)
	if err := service.RecomputeRanks(context.Background()); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	var user users.User
	if err := db.Where("id = ?", "user-a").Take(&user).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if user.TotalScore != 42 {
		t.Fatalf("expected untouched total score, got %d", user.TotalScore)
	}
	if user.LastSyncedAt != nil {
		t.Fatal("expected untouched last synced timestamp")
	}
}

func TestGetLeaderboardPaginatesInScoreOrder(t *testing.T) {
	db := newTestDatabase(t)
	seedScoredUser(t, db, "user-a", "alpha", 10)
	seedScoredUser(t, db, "user-b", "bravo", 90)
	seedScoredUser(t, db, "user-c", "charlie", 50)
	if err := db.Create(&stats.PlatformStats{UserID: "user-b", GitHubScore: 800, LeetCodeScore: 700, HackerRankScore: 300}).Error; err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}

	service := newTestService(t, db)
	board, err := service.GetLeaderboard(context.Background(), LeaderboardQuery{Limit: 2})
	if err != nil {
		t.Fatalf("leaderboard query failed: %v", err)
	}

	if board.Total != 3 {
		t.Fatalf("expected total of 3 users, got %d", board.Total)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected page of 2 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].Username != "bravo" || board.Entries[1].Username != "charlie" {
		t.Fatalf("unexpected page order: %s, %s", board.Entries[0].Username, board.Entries[1].Username)
	}
	if board.Entries[0].GitHubScore != 800 {
		t.Fatalf("expected joined platform score, got %v", board.Entries[0].GitHubScore)
	}
	// Never-synced users fall back to zero platform scores.
	if board.Entries[1].GitHubScore != 0 {
		t.Fatalf("expected zero platform score for unsynced user, got %v", board.Entries[1].GitHubScore)
	}

	second, err := service.GetLeaderboard(context.Background(), LeaderboardQuery{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("second page query failed: %v", err)
	}
	if len(second.Entries) != 1 || second.Entries[0].Username != "alpha" {
		t.Fatalf("unexpected second page %+v", second.Entries)
	}
	if second.Entries[0].Rank != 3 {
		t.Fatalf("expected positional rank 3 on second page, got %d", second.Entries[0].Rank)
	}
}

func TestGetLeaderboardRanksStayMonotonicWithUnrankedUsers(t *testing.T) {
	db := newTestDatabase(t)
	seedScoredUser(t, db, "user-a", "alpha", 30)
	seedScoredUser(t, db, "user-b", "bravo", 20)
	seedScoredUser(t, db, "user-c", "charlie", 10)

	service := newTestService(t, db)
	if err := service.RecomputeRanks(context.Background()); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	// A high scorer registered and synced after the last rank pass has no
	// persisted rank yet; the page must still number every row 1..n.
	seedScoredUser(t, db, "user-d", "delta", 99)

	board, err := service.GetLeaderboard(context.Background(), LeaderboardQuery{Limit: 10})
	if err != nil {
		t.Fatalf("leaderboard query failed: %v", err)
	}
	if len(board.Entries) != 4 {
		t.Fatalf("expected four entries, got %d", len(board.Entries))
	}
	if board.Entries[0].Username != "delta" {
		t.Fatalf("expected highest score first, got %s", board.Entries[0].Username)
	}
	for position, entry := range board.Entries {
		if entry.Rank != position+1 {
			t.Fatalf("expected rank %d at position %d, got %d", position+1, position, entry.Rank)
		}
	}
}

func TestGetLeaderboardFiltersByCollege(t *testing.T) {
	db := newTestDatabase(t)
	college := colleges.College{ID: "college-1", Name: "MIT", City: "Cambridge"}
	if err := db.Create(&college).Error; err != nil {
		t.Fatalf("failed to seed college: %v", err)
	}

	seedScoredUser(t, db, "user-a", "alpha", 90)
	seedScoredUser(t, db, "user-b", "bravo", 10)
	seedScoredUser(t, db, "user-c", "charlie", 50)
	for _, id := range []string{"user-b", "user-c"} {
		if err := db.Model(&users.User{}).Where("id = ?", id).Update("college_id", college.ID).Error; err != nil {
			t.Fatalf("failed to affiliate user %s: %v", id, err)
		}
	}

	service := newTestService(t, db)
	board, err := service.GetLeaderboard(context.Background(), LeaderboardQuery{CollegeID: college.ID})
	if err != nil {
		t.Fatalf("leaderboard query failed: %v", err)
	}

	if board.Total != 2 {
		t.Fatalf("expected two college members, got %d", board.Total)
	}
	if len(board.Entries) != 2 || board.Entries[0].Username != "charlie" || board.Entries[1].Username != "bravo" {
		t.Fatalf("unexpected filtered page %+v", board.Entries)
	}
	// Position is the rank within the college, not the global board.
	if board.Entries[0].Rank != 1 || board.Entries[1].Rank != 2 {
		t.Fatalf("expected college-scoped ranks 1 and 2, got %d and %d",
			board.Entries[0].Rank, board.Entries[1].Rank)
	}
	if board.Entries[0].CollegeName != "MIT" {
		t.Fatalf("expected joined college name, got %q", board.Entries[0].CollegeName)
	}
}
