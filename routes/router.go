package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/auth"
	"github.com/questhall/questhall/internal/job"
	"github.com/questhall/questhall/internal/metrics"
	"github.com/questhall/questhall/internal/party"
	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"github.com/questhall/questhall/pkg/rmiddleware"
)

func SetupRoutes() *gin.Engine {
	appConfig := config.GetConfig()
	db := config.DB
	jwtSecret := appConfig.JWT.AccessTokenSecret

	r := gin.Default()
	r.Use(cors.Default()) // allows all origins, GET/POST/PUT
	r.Use(rmiddleware.RequestID())
	r.Use(rmiddleware.RequestLogger(config.Log))
	r.Use(metrics.Middleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "questhall", "status": "ok"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", metrics.Handler())

	// Swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	auth.RegisterAuthRoutes(api, db, appConfig)
	profile.ProfileRoutes(api, db, appConfig, jwtSecret)
	job.JobRoutes(api, db, jwtSecret)
	party.PartyRoutes(api, db, jwtSecret)
	stats.StatsRoutes(api, db, jwtSecret)

	return r
}
