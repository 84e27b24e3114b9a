package views

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/profilecraft/profilecraft/models"
)

// DefaultRetention is how long view events are kept before the sweeper
// removes them.
const DefaultRetention = 365 * 24 * time.Hour

// Sweeper bounds view_events growth by deleting events older than the
// retention horizon.
type Sweeper struct {
	db        *gorm.DB
	retention time.Duration
	log       *zap.SugaredLogger
}

// NewSweeper creates a Sweeper. A non-positive retention falls back to
// DefaultRetention.
func NewSweeper(db *gorm.DB, retention time.Duration, log *zap.SugaredLogger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{db: db, retention: retention, log: log}
}

// CleanOldViews deletes all view events older than the retention horizon and
// returns how many rows were removed. Calling it again with nothing left to
// delete returns 0 with a nil error, so failure is distinguishable from an
// empty sweep.
//
// Denormalized project counters are left alone: they track insertions since
// inception, not surviving rows.
func (s *Sweeper) CleanOldViews() (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	res := s.db.Where("viewed_at < ?", cutoff).Delete(&models.ViewEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old view events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Start launches a background goroutine that sweeps on the given interval.
// Sweeps are best-effort: failures are logged and the next tick tries again.
func (s *Sweeper) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			n, err := s.CleanOldViews()
			if err != nil {
				if s.log != nil {
					s.log.Warnf("retention sweep failed: %v", err)
				}
				continue
			}
			if n > 0 && s.log != nil {
				s.log.Infof("retention sweep deleted %d view events", n)
			}
		}
	}()
}
