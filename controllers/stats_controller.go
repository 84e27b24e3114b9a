package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/models"
	"github.com/profilecraft/profilecraft/utils"
	"github.com/profilecraft/profilecraft/views"
)

// StatsController exposes view statistics for single projects and the site.
type StatsController struct {
	db       *gorm.DB
	stats    *views.Stats
	cacheTTL time.Duration
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, stats *views.Stats, cacheTTL time.Duration) *StatsController {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &StatsController{db: db, stats: stats, cacheTTL: cacheTTL}
}

// GetProjectStats returns total/unique/recent counts plus the daily
// histogram for one project. Results are cached briefly: the aggregator
// already degrades to zeros on failure, so a stale cache entry is the worst
// case.
func (s *StatsController) GetProjectStats(ctx *gin.Context) {
	idParam := ctx.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid project id")
		return
	}

	cacheKey := "cache:projects:stats:" + idParam
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	result := s.stats.GetViewStats(uint(id))

	resp := utils.JSONResponse{Code: 0, Message: "success", Data: result}
	if b, err := json.Marshal(resp); err == nil {
		utils.CacheSetBytes(cacheKey, b, s.cacheTTL)
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	utils.Success(ctx, result)
}

// GetOverview returns site-wide aggregates. Each count falls back to zero on
// its own query failure instead of failing the whole endpoint.
func (s *StatsController) GetOverview(ctx *gin.Context) {
	var projectCount int64
	var eventCount int64
	var totalViews int64

	if err := s.db.Model(&models.Project{}).Count(&projectCount).Error; err != nil {
		projectCount = 0
	}
	if err := s.db.Model(&models.ViewEvent{}).Count(&eventCount).Error; err != nil {
		eventCount = 0
	}
	if err := s.db.Model(&models.Project{}).
		Select("COALESCE(SUM(views),0)").
		Scan(&totalViews).Error; err != nil {
		totalViews = 0
	}

	utils.Success(ctx, gin.H{
		"project_count":    projectCount,
		"view_event_count": eventCount,
		"total_views":      totalViews,
	})
}
