package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/audit"
	"github.com/profilecraft/profilecraft/config"
	"github.com/profilecraft/profilecraft/controllers"
	"github.com/profilecraft/profilecraft/middleware"
	"github.com/profilecraft/profilecraft/utils"
	"github.com/profilecraft/profilecraft/views"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, auditor *audit.Logger) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestID())

	// Access log goes to its own rolling file so the app log stays readable.
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
		r.Use(utils.GinLogger(gl))
		r.Use(utils.GinRecovery(gl))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	recorder := views.NewRecorder(db, time.Duration(cfg.ViewDedupWindowHours)*time.Hour, utils.Sugar)
	stats := views.NewStats(db, time.Duration(cfg.ViewRecentWindowDays)*24*time.Hour, utils.Sugar)

	projectController := controllers.NewProjectController(db, recorder, auditor)
	statsController := controllers.NewStatsController(db, stats, time.Duration(cfg.StatsCacheTTLSeconds)*time.Second)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	projectsGroup := api.Group("/projects")
	projectsGroup.GET("", projectController.ListProjects)
	// Detail pages record views, so they get the per-IP rate limiter.
	projectsGroup.GET("/:id", middleware.RateLimitMiddleware(), projectController.GetProject)
	projectsGroup.GET("/:id/stats", statsController.GetProjectStats)

	api.GET("/stats", statsController.GetOverview)
	api.GET("/users/:id/projects", projectController.ListUserProjects)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, 404, 40400, "route not found")
	})

	return r
}
