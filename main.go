package main

import (
	"log"

	"github.com/questhall/questhall/config"
	_ "github.com/questhall/questhall/docs"
	"github.com/questhall/questhall/internal/job"
	"github.com/questhall/questhall/internal/party"
	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"github.com/questhall/questhall/internal/user"
	"github.com/questhall/questhall/routes"
	"go.uber.org/zap"
)

// @title QuestHall REST API
// @version 1.0
// @description Gamified job board: quests, applications, XP ranks and parties.
// @host localhost:8088
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := config.Initialize(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	cfg := config.GetConfig()

	err := config.DB.AutoMigrate(
		&user.User{}, &user.RefreshToken{},
		&profile.Role{}, &profile.Profile{},
		&job.Job{}, &job.JobApplication{},
		&party.Party{}, &party.PartyMember{},
		&stats.Rank{}, &stats.UserStats{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	if err := profile.NewProfileRepository(config.DB).SeedRoles(); err != nil {
		log.Fatalf("Role seeding failed: %v", err)
	}
	if err := stats.NewStatsRepository(config.DB).SeedRanks(); err != nil {
		log.Fatalf("Rank seeding failed: %v", err)
	}

	r := routes.SetupRoutes()

	config.Log.Info("starting server",
		zap.String("port", cfg.App.Port),
		zap.String("env", cfg.App.Env),
	)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
