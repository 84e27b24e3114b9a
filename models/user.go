package models

import "time"

// SentinelUserID is the placeholder accepted in place of a numeric user id.
// It resolves to the portfolio owner's real row id, and every resolution is
// recorded in the audit log.
const SentinelUserID = "admin"

// User is the portfolio owner whose projects are served by this service.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	DisplayName string    `gorm:"size:128" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
