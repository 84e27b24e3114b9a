package views

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/models"
)

// DefaultDedupWindow is the trailing window inside which repeat views from
// one address do not count again.
const DefaultDedupWindow = 24 * time.Hour

// Recorder decides whether an incoming page view counts as new and keeps the
// project's denormalized views counter in sync.
//
// The duplicate check and the insert are not wrapped in a transaction, so
// concurrent requests from the same address can both pass the check and
// record two events. View counting is approximate, and that is preferred
// over paying for a transaction on every page view.
type Recorder struct {
	db     *gorm.DB
	window time.Duration
	log    *zap.SugaredLogger
}

// NewRecorder creates a Recorder. A non-positive window falls back to
// DefaultDedupWindow.
func NewRecorder(db *gorm.DB, window time.Duration, log *zap.SugaredLogger) *Recorder {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Recorder{db: db, window: window, log: log}
}

// RecordView persists a view unless the same address already viewed the
// project inside the dedup window. It returns true only when a new event was
// stored and the counter incremented. Datastore failures are logged and
// reported as false: a flaky database never counts a view and never breaks
// the request that triggered it.
func (r *Recorder) RecordView(entityID uint, clientIP, userAgent string) bool {
	now := time.Now()
	windowStart := now.Add(-r.window)

	var dup int64
	err := r.db.Model(&models.ViewEvent{}).
		Where("entity_id = ? AND ip_address = ? AND viewed_at >= ?", entityID, clientIP, windowStart).
		Count(&dup).Error
	if err != nil {
		r.warnf("view dedup check failed entity=%d ip=%s: %v", entityID, clientIP, err)
		return false
	}
	if dup > 0 {
		return false
	}

	ev := models.ViewEvent{
		EntityID:  entityID,
		IPAddress: clientIP,
		UserAgent: truncate(userAgent, 255),
		ViewedAt:  now,
	}
	if err := r.db.Create(&ev).Error; err != nil {
		r.warnf("view event insert failed entity=%d ip=%s: %v", entityID, clientIP, err)
		return false
	}

	if err := r.db.Model(&models.Project{}).Where("id = ?", entityID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		r.warnf("view counter increment failed entity=%d: %v", entityID, err)
		return false
	}
	return true
}

// RecordRequest resolves the client address and user agent from the request
// and records the view.
func (r *Recorder) RecordRequest(entityID uint, req *http.Request) bool {
	ua := ""
	if req != nil {
		ua = req.UserAgent()
	}
	return r.RecordView(entityID, ResolveClientIP(req), ua)
}

func (r *Recorder) warnf(format string, args ...interface{}) {
	if r.log != nil {
		r.log.Warnf(format, args...)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
