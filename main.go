package main

import (
	"time"

	"github.com/profilecraft/profilecraft/audit"
	"github.com/profilecraft/profilecraft/config"
	"github.com/profilecraft/profilecraft/models"
	"github.com/profilecraft/profilecraft/routes"
	"github.com/profilecraft/profilecraft/utils"
	"github.com/profilecraft/profilecraft/views"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Project{}, &models.ViewEvent{})

	auditor := audit.New(cfg.AuditLogDir, cfg.AuditQueueSize, utils.Sugar)
	defer auditor.Close()

	// Background retention sweep for old view events (best-effort)
	sweeper := views.NewSweeper(db, time.Duration(cfg.ViewRetentionDays)*24*time.Hour, utils.Sugar)
	sweeper.Start(time.Duration(cfg.SweepIntervalMinutes) * time.Minute)

	r := routes.SetupRouter(db, auditor)

	utils.Sugar.Infof("starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
