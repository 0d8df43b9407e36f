package stats

import (
	"net/http"
	"strings"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsController serves XP totals, rank resolution, the leaderboard and
// the dashboard summary.
type StatsController struct {
	repo        StatsRepository
	profileRepo profile.ProfileRepository
}

func NewStatsController(repo StatsRepository, profileRepo profile.ProfileRepository) *StatsController {
	return &StatsController{
		repo:        repo,
		profileRepo: profileRepo,
	}
}

func (sc *StatsController) resolveProfile(c *gin.Context) *profile.Profile {
	authID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil
	}
	p, err := sc.profileRepo.ResolveByAuthID(authID)
	if err != nil {
		config.Log.Error("profile resolution failed", zap.Error(err), zap.Uint("auth_id", authID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return nil
	}
	return p
}

func displayName(p *profile.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// GetUserStats godoc
// @Summary      Get the caller's XP, rank and progress
// @Tags         Stats
// @Produce      json
// @Success      200  {object} map[string]interface{}
// @Failure      401  {object} responses.ErrorResponse
// @Failure      500  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /user/stats [get]
func (sc *StatsController) GetUserStats(c *gin.Context) {
	p := sc.resolveProfile(c)
	if p == nil {
		return
	}

	s, err := sc.repo.GetStats(p.ID)
	if err != nil {
		config.Log.Error("stats fetch failed", zap.Error(err), zap.Uint("user_id", p.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user stats"})
		return
	}
	if s == nil {
		s = &UserStats{UserID: p.ID, XP: 0}
	}

	rank, err := ResolveRank(sc.repo, s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve rank"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": gin.H{
			"id":           p.ID,
			"display_name": displayName(p),
			"avatar_url":   p.AvatarURL,
			"role_id":      p.RoleID,
		},
		"stats": gin.H{
			"user_id":    s.UserID,
			"xp":         s.XP,
			"updated_at": s.UpdatedAt,
		},
		"rank":     rank,
		"progress": ComputeProgress(s.XP, rank),
	})
}

// UpdateUserStats godoc
// @Summary      Apply an XP delta or set an absolute XP total
// @Tags         Stats
// @Accept       json
// @Produce      json
// @Param        update  body  UpdateStatsRequest  true  "delta or xp"
// @Success      200  {object} map[string]interface{}
// @Failure      400  {object} responses.ErrorResponse
// @Failure      401  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /user/stats [patch]
func (sc *StatsController) UpdateUserStats(c *gin.Context) {
	p := sc.resolveProfile(c)
	if p == nil {
		return
	}

	var req UpdateStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if req.Delta == nil && req.XP == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide `delta` or `xp` in request body"})
		return
	}

	var s *UserStats
	var err error
	if req.XP != nil {
		s, err = sc.repo.SetXP(p.ID, *req.XP)
	} else {
		s, err = sc.repo.AddXP(p.ID, *req.Delta)
	}
	if err != nil {
		config.Log.Error("stats update failed", zap.Error(err), zap.Uint("user_id", p.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user stats"})
		return
	}

	rank, err := ResolveRank(sc.repo, s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve rank"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": s, "rank": rank})
}

// ListRanks godoc
// @Summary      List all rank bands
// @Tags         Stats
// @Produce      json
// @Success      200  {object} map[string][]Rank
// @Router       /ranks [get]
func (sc *StatsController) ListRanks(c *gin.Context) {
	ranks, err := sc.repo.ListRanks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ranks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranks": ranks})
}

// Leaderboard godoc
// @Summary      Top profiles by XP
// @Tags         Stats
// @Produce      json
// @Success      200  {array} LeaderboardEntry
// @Router       /leaderboard [get]
func (sc *StatsController) Leaderboard(c *gin.Context) {
	entries, err := sc.repo.Leaderboard(10)
	if err != nil {
		config.Log.Error("leaderboard query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// DashboardSummary godoc
// @Summary      Aggregate counters for the landing view
// @Tags         Stats
// @Produce      json
// @Success      200  {object} DashboardSummary
// @Failure      401  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /dashboard/summary [get]
func (sc *StatsController) DashboardSummary(c *gin.Context) {
	p := sc.resolveProfile(c)
	if p == nil {
		return
	}

	partiesCount, err := sc.repo.CountParties()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count parties"})
		return
	}
	finishedJobs, err := sc.repo.CountFinishedJobs(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count finished jobs"})
		return
	}
	openQuests, err := sc.repo.CountOpenJobs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count open quests"})
		return
	}

	s, err := sc.repo.GetStats(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user stats"})
		return
	}
	if s == nil {
		s = &UserStats{UserID: p.ID, XP: 0}
	}

	rank, err := ResolveRank(sc.repo, s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve rank"})
		return
	}

	var rankOut gin.H
	if rank != nil {
		rankOut = gin.H{"id": rank.ID, "name": rank.Name}
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": gin.H{
			"id":           p.ID,
			"display_name": displayName(p),
			"avatar_url":   p.AvatarURL,
		},
		"rank":              rankOut,
		"xp":                s.XP,
		"partiesCount":      partiesCount,
		"finishedJobsCount": finishedJobs,
		"openQuestsCount":   openQuests,
	})
}
