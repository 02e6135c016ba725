package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codeclimb/codeclimb-backend/internal/colleges"
	"github.com/codeclimb/codeclimb-backend/internal/ranking"
	"github.com/codeclimb/codeclimb-backend/internal/stats"
	"github.com/codeclimb/codeclimb-backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingUsersService    = errors.New("users service dependency required")
	errMissingStatsService    = errors.New("stats service dependency required")
	errMissingRankingService  = errors.New("ranking service dependency required")
	errMissingCollegesService = errors.New("colleges service dependency required")
)

// Dependencies wires the services the HTTP layer exposes.
type Dependencies struct {
	UsersService    *users.Service
	StatsService    *stats.Service
	RankingService  *ranking.Service
	CollegesService *colleges.Service
	Logger          *zap.Logger
}

// NewHTTPHandler builds the gin router serving the public API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.StatsService == nil {
		return nil, errMissingStatsService
	}
	if deps.RankingService == nil {
		return nil, errMissingRankingService
	}
	if deps.CollegesService == nil {
		return nil, errMissingCollegesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		users:    deps.UsersService,
		stats:    deps.StatsService,
		ranking:  deps.RankingService,
		colleges: deps.CollegesService,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/users", handler.handleCreateUser)
	router.GET("/users/:username", handler.handleGetUser)
	router.PUT("/users/:id/platforms", handler.handleConnectPlatforms)
	router.POST("/users/:id/sync", handler.handleSyncUser)
	router.GET("/leaderboard", handler.handleLeaderboard)
	router.GET("/colleges", handler.handleListColleges)
	router.GET("/colleges/:id", handler.handleGetCollege)
	router.POST("/colleges", handler.handleCreateCollege)
	router.GET("/analytics/history/:userId", handler.handleScoreHistory)
	router.GET("/analytics/summary/:userId", handler.handleStatsSummary)

	return router, nil
}

type httpHandler struct {
	users    *users.Service
	stats    *stats.Service
	ranking  *ranking.Service
	colleges *colleges.Service
	logger   *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createUserPayload struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CollegeID string `json:"college_id"`
}

type userResponsePayload struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	CollegeID          string     `json:"college_id,omitempty"`
	GitHubUsername     string     `json:"github_username,omitempty"`
	LeetCodeUsername   string     `json:"leetcode_username,omitempty"`
	HackerRankUsername string     `json:"hackerrank_username,omitempty"`
	TotalScore         int        `json:"total_score"`
	Rank               *int       `json:"rank"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
}

func userResponse(user users.User, includeEmail bool) userResponsePayload {
	payload := userResponsePayload{
		ID:                 user.ID,
		Username:           user.Username,
		Name:               user.Name,
		CollegeID:          user.CollegeID,
		GitHubUsername:     user.GitHubUsername,
		LeetCodeUsername:   user.LeetCodeUsername,
		HackerRankUsername: user.HackerRankUsername,
		TotalScore:         user.TotalScore,
		Rank:               user.Rank,
		LastSyncedAt:       user.LastSyncedAt,
	}
	if includeEmail {
		payload.Email = user.Email
	}
	return payload
}

func (h *httpHandler) handleCreateUser(c *gin.Context) {
	var request createUserPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.users.CreateUser(c.Request.Context(), users.CreateUserInput{
		Username:  request.Username,
		Name:      request.Name,
		Email:     request.Email,
		CollegeID: request.CollegeID,
	})
	switch {
	case errors.Is(err, users.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile"})
		return
	case errors.Is(err, users.ErrCollegeNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "college_not_found"})
		return
	case errors.Is(err, users.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		return
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	case err != nil:
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	c.JSON(http.StatusCreated, userResponse(created, true))
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	user, err := h.users.GetByUsername(c.Request.Context(), username)
	if errors.Is(err, users.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, userResponse(user, false))
}

type connectPlatformsPayload struct {
	GitHubUsername     *string `json:"github_username"`
	LeetCodeUsername   *string `json:"leetcode_username"`
	HackerRankUsername *string `json:"hackerrank_username"`
}

type connectPlatformsResponse struct {
	User   userResponsePayload   `json:"user"`
	Scores *stats.ScoreBreakdown `json:"scores,omitempty"`
}

// handleConnectPlatforms stores the submitted handles and kicks off an
// immediate sync so the new platforms show up without waiting for the next
// scheduled pass. A failing sync does not undo the handle update.
func (h *httpHandler) handleConnectPlatforms(c *gin.Context) {
	userID := c.Param("id")
	var request connectPlatformsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.users.UpdatePlatformHandles(c.Request.Context(), userID, users.PlatformHandles{
		GitHub:     request.GitHubUsername,
		LeetCode:   request.LeetCodeUsername,
		HackerRank: request.HackerRankUsername,
	})
	if errors.Is(err, users.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update platform handles", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}

	response := connectPlatformsResponse{User: userResponse(updated, true)}
	if updated.HasAnyHandle() {
		breakdown, err := h.stats.SyncUser(c.Request.Context(), userID)
		if err != nil {
			h.logger.Warn("post-connect sync failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			response.Scores = &breakdown
			if refreshed, err := h.users.GetByID(c.Request.Context(), userID); err == nil {
				response.User = userResponse(refreshed, true)
			}
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleSyncUser(c *gin.Context) {
	userID := c.Param("id")
	breakdown, err := h.stats.SyncUser(c.Request.Context(), userID)
	if errors.Is(err, stats.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("manual sync failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync_failed"})
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (h *httpHandler) handleLeaderboard(c *gin.Context) {
	query := ranking.LeaderboardQuery{
		Limit:     parseIntQuery(c, "limit", 50),
		Offset:    parseIntQuery(c, "offset", 0),
		CollegeID: strings.TrimSpace(c.Query("college_id")),
	}

	board, err := h.ranking.GetLeaderboard(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to load leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard_failed"})
		return
	}
	c.JSON(http.StatusOK, board)
}

type createCollegePayload struct {
	Name string `json:"name"`
	City string `json:"city"`
}

func (h *httpHandler) handleListColleges(c *gin.Context) {
	profiles, err := h.colleges.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list colleges", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "colleges_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"colleges": profiles})
}

func (h *httpHandler) handleGetCollege(c *gin.Context) {
	collegeID := c.Param("id")
	profile, err := h.colleges.GetByID(c.Request.Context(), collegeID)
	if errors.Is(err, colleges.ErrCollegeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "college_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load college", zap.String("college_id", collegeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleCreateCollege(c *gin.Context) {
	var request createCollegePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.colleges.CreateCollege(c.Request.Context(), colleges.CreateCollegeInput{
		Name: request.Name,
		City: request.City,
	})
	switch {
	case errors.Is(err, colleges.ErrInvalidCollege):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_college"})
		return
	case errors.Is(err, colleges.ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "college_name_taken"})
		return
	case err != nil:
		h.logger.Error("failed to create college", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleScoreHistory(c *gin.Context) {
	userID := c.Param("userId")
	days := parseIntQuery(c, "days", 30)

	snapshots, err := h.stats.HistoryForUser(c.Request.Context(), userID, days)
	if err != nil {
		h.logger.Error("failed to load score history", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": snapshots})
}

func (h *httpHandler) handleStatsSummary(c *gin.Context) {
	userID := c.Param("userId")
	summary, err := h.stats.SummaryForUser(c.Request.Context(), userID)
	if errors.Is(err, stats.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load stats summary", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary_failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
