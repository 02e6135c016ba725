package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/colleges"
	"github.com/codeclimb/codeclimb-backend/internal/platform"
	"github.com/codeclimb/codeclimb-backend/internal/ranking"
	"github.com/codeclimb/codeclimb-backend/internal/stats"
	"github.com/codeclimb/codeclimb-backend/internal/users"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixedGitHub struct {
	metrics platform.GitHubMetrics
}

func (f *fixedGitHub) Fetch(ctx context.Context, handle string) (platform.GitHubMetrics, error) {
	return f.metrics, nil
}

func newTestHandler(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &stats.PlatformStats{}, &stats.ScoreHistory{}, &colleges.College{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}

	statsService, err := stats.NewService(stats.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
		Clock:      func() time.Time { return time.Unix(1_700_000_000, 0) },
		Logger:     zap.NewNop(),
		GitHub:     &fixedGitHub{metrics: platform.GitHubMetrics{Repos: 10, Stars: 50, Commits: 200, Followers: 20}},
	})
	if err != nil {
		t.Fatalf("failed to build stats service: %v", err)
	}

	rankingService, err := ranking.NewService(ranking.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build ranking service: %v", err)
	}

	collegesService, err := colleges.NewService(colleges.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build colleges service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		UsersService:    usersService,
		StatsService:    statsService,
		RankingService:  rankingService,
		CollegesService: collegesService,
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler, db
}

func performJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username": "ada",
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["username"] != "ada" {
		t.Fatalf("unexpected response %v", response)
	}

	duplicate := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username": "ada",
		"name":     "Other",
		"email":    "other@example.com",
	})
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", duplicate.Code)
	}
}

func TestCreateUserEndpointRejectsInvalidProfile(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username": "x",
		"name":     "Ada",
		"email":    "ada@example.com",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request status, got %d", recorder.Code)
	}
}

func TestConnectPlatformsTriggersImmediateSync(t *testing.T) {
	handler, db := newTestHandler(t)

	created := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username": "ada",
		"name":     "Ada",
		"email":    "ada@example.com",
	})
	var createdUser struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &createdUser); err != nil {
		t.Fatalf("failed to decode created user: %v", err)
	}

	recorder := performJSON(t, handler, http.MethodPut, "/users/"+createdUser.ID+"/platforms", map[string]string{
		"github_username": "ada-gh",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		User struct {
			TotalScore int `json:"total_score"`
		} `json:"user"`
		Scores *stats.ScoreBreakdown `json:"scores"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Scores == nil || response.Scores.GitHubScore != 85 {
		t.Fatalf("expected immediate sync scores, got %+v", response.Scores)
	}
	if response.User.TotalScore != 3 {
		t.Fatalf("expected refreshed total score 3, got %d", response.User.TotalScore)
	}

	var historyCount int64
	if err := db.Model(&stats.ScoreHistory{}).Count(&historyCount).Error; err != nil {
		t.Fatalf("failed to count history: %v", err)
	}
	if historyCount != 1 {
		t.Fatalf("expected one history snapshot, got %d", historyCount)
	}
}

func TestSyncEndpointUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodPost, "/users/missing/sync", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"error":"user_not_found"}` {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	handler, db := newTestHandler(t)

	for _, seed := range []struct {
		id    string
		score int
	}{{"user-a", 10}, {"user-b", 90}} {
		user := users.User{
			ID:         seed.id,
			Username:   seed.id,
			Name:       seed.id,
			Email:      seed.id + "@example.com",
			TotalScore: seed.score,
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	recorder := performJSON(t, handler, http.MethodGet, "/leaderboard?limit=10", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}

	var board ranking.Leaderboard
	if err := json.Unmarshal(recorder.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode leaderboard: %v", err)
	}
	if board.Total != 2 || len(board.Entries) != 2 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
	if board.Entries[0].Username != "user-b" {
		t.Fatalf("expected highest score first, got %s", board.Entries[0].Username)
	}
}

func TestCollegeEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t)

	created := performJSON(t, handler, http.MethodPost, "/colleges", map[string]string{
		"name": "MIT",
		"city": "Cambridge",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", created.Code, created.Body.String())
	}
	var college struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &college); err != nil {
		t.Fatalf("failed to decode college: %v", err)
	}

	// A member registered with the college shows up in its count.
	member := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username":   "ada",
		"name":       "Ada",
		"email":      "ada@example.com",
		"college_id": college.ID,
	})
	if member.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", member.Code, member.Body.String())
	}

	fetched := performJSON(t, handler, http.MethodGet, "/colleges/"+college.ID, nil)
	if fetched.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", fetched.Code)
	}
	var profile colleges.Profile
	if err := json.Unmarshal(fetched.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.Name != "MIT" || profile.Members != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}

	listed := performJSON(t, handler, http.MethodGet, "/colleges", nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", listed.Code)
	}
	var listing struct {
		Colleges []colleges.Profile `json:"colleges"`
	}
	if err := json.Unmarshal(listed.Body.Bytes(), &listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if len(listing.Colleges) != 1 {
		t.Fatalf("expected one college, got %d", len(listing.Colleges))
	}

	missing := performJSON(t, handler, http.MethodGet, "/colleges/missing", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", missing.Code)
	}
	if missing.Body.String() != `{"error":"college_not_found"}` {
		t.Fatalf("unexpected body %s", missing.Body.String())
	}
}

func TestCreateUserEndpointRejectsUnknownCollege(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"username":   "ada",
		"name":       "Ada",
		"email":      "ada@example.com",
		"college_id": "missing",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request status, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"error":"college_not_found"}` {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}

func TestLeaderboardEndpointFiltersByCollege(t *testing.T) {
	handler, db := newTestHandler(t)

	college := colleges.College{ID: "college-1", Name: "MIT", City: "Cambridge"}
	if err := db.Create(&college).Error; err != nil {
		t.Fatalf("failed to seed college: %v", err)
	}
	for _, seed := range []struct {
		id        string
		score     int
		collegeID string
	}{
		{"user-a", 90, ""},
		{"user-b", 10, "college-1"},
		{"user-c", 50, "college-1"},
	} {
		user := users.User{
			ID:         seed.id,
			Username:   seed.id,
			Name:       seed.id,
			Email:      seed.id + "@example.com",
			CollegeID:  seed.collegeID,
			TotalScore: seed.score,
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	recorder := performJSON(t, handler, http.MethodGet, "/leaderboard?college_id=college-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}

	var board ranking.Leaderboard
	if err := json.Unmarshal(recorder.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode leaderboard: %v", err)
	}
	if board.Total != 2 || len(board.Entries) != 2 {
		t.Fatalf("unexpected board %+v", board)
	}
	if board.Entries[0].Username != "user-c" || board.Entries[0].Rank != 1 {
		t.Fatalf("expected college-scoped order, got %+v", board.Entries[0])
	}
}

func TestSummaryEndpointUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodGet, "/analytics/summary/missing", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", recorder.Code)
	}
}

func TestHistoryEndpointReturnsAscendingWindow(t *testing.T) {
	handler, db := newTestHandler(t)

	now := time.Unix(1_700_000_000, 0).UTC()
	for _, seed := range []struct {
		id    string
		score int
		age   int
	}{{"snap-1", 10, 5}, {"snap-2", 20, 2}} {
		snapshot := stats.ScoreHistory{
			ID:         seed.id,
			UserID:     "user-1",
			TotalScore: seed.score,
			RecordedAt: now.AddDate(0, 0, -seed.age),
		}
		if err := db.Create(&snapshot).Error; err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}
	}

	recorder := performJSON(t, handler, http.MethodGet, "/analytics/history/user-1?days=30", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}

	var response struct {
		History []stats.ScoreHistory `json:"history"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(response.History) != 2 {
		t.Fatalf("expected two snapshots, got %d", len(response.History))
	}
	if response.History[0].ID != "snap-1" || response.History[1].ID != "snap-2" {
		t.Fatalf("expected ascending order, got %s then %s", response.History[0].ID, response.History[1].ID)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := performJSON(t, handler, http.MethodGet, "/healthz", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}
}
