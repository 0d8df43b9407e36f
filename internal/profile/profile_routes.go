package profile

import (
	"github.com/questhall/questhall/config"
	mw "github.com/questhall/questhall/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProfileRoutes sets up profile and admin-invite routes.
func ProfileRoutes(router *gin.RouterGroup, db *gorm.DB, appConfig *config.Config, jwtSecret string) {
	repo := NewProfileRepository(db)
	controller := NewProfileController(repo, appConfig)

	authRoutes := router.Group("/")
	authRoutes.Use(mw.AuthMiddleware(jwtSecret, db))
	{
		authRoutes.GET("/profiles/me", controller.Me)
		authRoutes.PATCH("/profiles/me", controller.UpdateMe)
	}

	// The invite endpoint checks authentication itself so a wrong code
	// answers 400 before any session check, matching the promotion
	// contract.
	router.POST("/admin/invite", optionalAuth(jwtSecret, db), controller.Invite)
}

// optionalAuth populates the auth context when a valid bearer token is
// present but never aborts; the handler decides what absence means.
func optionalAuth(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	authenticated := mw.AuthMiddleware(jwtSecret, db)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		authenticated(c)
	}
}
