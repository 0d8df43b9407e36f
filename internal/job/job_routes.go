package job

import (
	mw "github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"github.com/questhall/questhall/pkg/rmiddleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// JobRoutes sets up job listing, application and admin CRUD routes.
func JobRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string) {
	jobRepo := NewJobRepository(db)
	profileRepo := profile.NewProfileRepository(db)
	statsRepo := stats.NewStatsRepository(db)
	controller := NewJobController(jobRepo, profileRepo, statsRepo)

	// Public listing
	router.GET("/jobs", controller.ListJobs)

	authRoutes := router.Group("/")
	authRoutes.Use(mw.AuthMiddleware(jwtSecret, db))
	{
		authRoutes.POST("/apply", controller.Apply)
		authRoutes.POST("/jobs/:job_id/applications", controller.ApplyToJob)
		authRoutes.GET("/jobs/:job_id/applications", controller.ListApplications)
		authRoutes.PATCH("/jobs/:job_id/applications/:app_id", controller.UpdateApplication)
	}

	adminRoutes := router.Group("/admin")
	adminRoutes.Use(mw.AuthMiddleware(jwtSecret, db))
	adminRoutes.Use(rmiddleware.AdminMiddleware(db))
	{
		adminRoutes.GET("/jobs", controller.AdminListJobs)
		adminRoutes.POST("/jobs", controller.AdminCreateJob)
		adminRoutes.PATCH("/jobs/:job_id", controller.AdminUpdateJob)
		adminRoutes.DELETE("/jobs/:job_id", controller.AdminDeleteJob)
	}
}
