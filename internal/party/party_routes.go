package party

import (
	mw "github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PartyRoutes sets up party and membership routes.
func PartyRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string) {
	repo := NewPartyRepository(db)
	profileRepo := profile.NewProfileRepository(db)
	controller := NewPartyController(repo, profileRepo)

	// Public reads
	router.GET("/parties", controller.ListParties)
	router.GET("/parties/:party_id", controller.GetParty)
	router.GET("/parties/:party_id/members", controller.ListMembers)

	authRoutes := router.Group("/")
	authRoutes.Use(mw.AuthMiddleware(jwtSecret, db))
	{
		authRoutes.POST("/parties", controller.CreateParty)
		authRoutes.PATCH("/parties/:party_id", controller.UpdateParty)
		authRoutes.POST("/parties/:party_id/members", controller.JoinParty)
		authRoutes.DELETE("/parties/:party_id/members/:member_id", controller.RemoveMember)
	}
}
