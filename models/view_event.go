package models

import "time"

// ViewEvent stores one counted page view of a project, de-duplicated per
// client address inside the recorder's window. Rows are insert-only; the
// retention sweeper is the only delete path and nothing ever updates them.
type ViewEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EntityID  uint      `gorm:"index;index:idx_view_events_entity_ip;not null" json:"entity_id"`
	IPAddress string    `gorm:"index:idx_view_events_entity_ip;size:45;not null" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	ViewedAt  time.Time `gorm:"index;not null" json:"viewed_at"`
}
