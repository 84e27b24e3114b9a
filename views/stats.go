package views

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/models"
)

// DefaultRecentWindow bounds the "recent" counters and the daily histogram.
const DefaultRecentWindow = 7 * 24 * time.Hour

// DailyCount is one calendar day's view total.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}

// Result aggregates a project's view statistics.
type Result struct {
	TotalViews  int64        `json:"total_views"`
	UniqueViews int64        `json:"unique_views"`
	RecentViews int64        `json:"recent_views"`
	DailyViews  []DailyCount `json:"daily_views"`
}

// Stats computes read-only view statistics from the event store.
type Stats struct {
	db     *gorm.DB
	recent time.Duration
	log    *zap.SugaredLogger
}

// NewStats creates a Stats aggregator. A non-positive recent window falls
// back to DefaultRecentWindow.
func NewStats(db *gorm.DB, recent time.Duration, log *zap.SugaredLogger) *Stats {
	if recent <= 0 {
		recent = DefaultRecentWindow
	}
	return &Stats{db: db, recent: recent, log: log}
}

// GetViewStats returns total, unique and recent view counts plus an
// ascending per-day histogram over the recent window. Daily buckets use UTC
// calendar days so the histogram does not depend on server or database
// timezone settings.
//
// On any query failure the whole result degrades to zeros instead of
// propagating the error: the stats dashboard stays available even when the
// datastore is unhappy.
func (s *Stats) GetViewStats(entityID uint) Result {
	zero := Result{DailyViews: []DailyCount{}}

	var total int64
	if err := s.db.Model(&models.ViewEvent{}).
		Where("entity_id = ?", entityID).
		Count(&total).Error; err != nil {
		s.warnf("view stats total query failed entity=%d: %v", entityID, err)
		return zero
	}

	unique, err := s.GetUniqueViews(entityID)
	if err != nil {
		s.warnf("view stats unique query failed entity=%d: %v", entityID, err)
		return zero
	}

	since := time.Now().Add(-s.recent)
	var viewedAts []time.Time
	if err := s.db.Model(&models.ViewEvent{}).
		Where("entity_id = ? AND viewed_at >= ?", entityID, since).
		Order("viewed_at ASC").
		Pluck("viewed_at", &viewedAts).Error; err != nil {
		s.warnf("view stats recent query failed entity=%d: %v", entityID, err)
		return zero
	}

	return Result{
		TotalViews:  total,
		UniqueViews: unique,
		RecentViews: int64(len(viewedAts)),
		DailyViews:  bucketByDay(viewedAts),
	}
}

// GetUniqueViews counts distinct client addresses over the project's whole
// history, not just the recent window.
func (s *Stats) GetUniqueViews(entityID uint) (int64, error) {
	var unique int64
	err := s.db.Model(&models.ViewEvent{}).
		Where("entity_id = ?", entityID).
		Distinct("ip_address").
		Count(&unique).Error
	return unique, err
}

func bucketByDay(ts []time.Time) []DailyCount {
	counts := map[string]int64{}
	for _, t := range ts {
		counts[t.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyCount{Date: d, Count: counts[d]})
	}
	return out
}

func (s *Stats) warnf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}
