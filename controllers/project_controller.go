package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/audit"
	"github.com/profilecraft/profilecraft/models"
	"github.com/profilecraft/profilecraft/utils"
	"github.com/profilecraft/profilecraft/views"
)

// ProjectController serves the public read side of the portfolio: project
// lists and detail pages. Fetching a detail page is what triggers view
// recording.
type ProjectController struct {
	db       *gorm.DB
	recorder *views.Recorder
	auditor  *audit.Logger
}

// NewProjectController creates a new ProjectController instance.
func NewProjectController(db *gorm.DB, recorder *views.Recorder, auditor *audit.Logger) *ProjectController {
	return &ProjectController{db: db, recorder: recorder, auditor: auditor}
}

// ListProjects returns paginated projects including owner information.
func (p *ProjectController) ListProjects(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := fmt.Sprintf("cache:projects:list:page=%d:size=%d", page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	var projects []models.Project
	var total int64

	query := p.db.Model(&models.Project{}).Preload("User").Order("created_at DESC")
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count projects")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&projects).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list projects")
		return
	}

	payload := gin.H{
		"items": projects,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}

	// Cache the full response envelope so cache hits skip serialization too.
	resp := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	if b, err := json.Marshal(resp); err == nil {
		utils.CacheSetBytes(cacheKey, b, time.Minute)
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	utils.Success(ctx, payload)
}

// GetProject returns one project and records the page view. The response
// carries view_counted so callers can tell whether this request incremented
// the counter or fell inside the dedup window.
func (p *ProjectController) GetProject(ctx *gin.Context) {
	idParam := ctx.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid project id")
		return
	}

	var project models.Project
	if err := p.db.Preload("User").First(&project, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "project not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load project")
		return
	}

	counted := p.recorder.RecordRequest(project.ID, ctx.Request)
	if counted {
		// Reflect the increment in this response without re-reading the row.
		project.Views++
		// A counted view makes any cached stats for this project stale.
		utils.InvalidateByPrefix("cache:projects:stats:" + idParam)
	}

	utils.Success(ctx, gin.H{"project": project, "view_counted": counted})
}

// ListUserProjects returns all projects owned by a user. The id parameter
// accepts the "admin" sentinel, which resolves to the portfolio owner's real
// row id; every such resolution is written to the audit trail.
func (p *ProjectController) ListUserProjects(ctx *gin.Context) {
	idParam := ctx.Param("id")

	var userID uint
	if idParam == models.SentinelUserID {
		var owner models.User
		if err := p.db.Order("id ASC").First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusNotFound, 40420, "portfolio owner not found")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to resolve user")
			return
		}
		userID = owner.ID
		p.auditor.LogSentinelUsage(ctx.Request, audit.SentinelInfo{
			Action:         "sentinel_user_resolved",
			InputUserID:    idParam,
			ResolvedUserID: strconv.FormatUint(uint64(owner.ID), 10),
		})
	} else {
		id, err := strconv.ParseUint(idParam, 10, 32)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
			return
		}
		userID = uint(id)
	}

	var projects []models.Project
	if err := p.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&projects).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to list user projects")
		return
	}

	utils.Success(ctx, gin.H{"items": projects, "user_id": userID})
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
