package stats

import (
	mw "github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatsRoutes sets up stats, rank, leaderboard and dashboard routes.
func StatsRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string) {
	repo := NewStatsRepository(db)
	profileRepo := profile.NewProfileRepository(db)
	controller := NewStatsController(repo, profileRepo)

	// Public reference data
	router.GET("/ranks", controller.ListRanks)
	router.GET("/leaderboard", controller.Leaderboard)

	authRoutes := router.Group("/")
	authRoutes.Use(mw.AuthMiddleware(jwtSecret, db))
	{
		authRoutes.GET("/user/stats", controller.GetUserStats)
		authRoutes.PATCH("/user/stats", controller.UpdateUserStats)
		authRoutes.GET("/dashboard/summary", controller.DashboardSummary)
	}
}
