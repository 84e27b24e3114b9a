package models

import "time"

// Project represents a portfolio project shown on the public site.
//
// Views is a denormalized counter incremented once per counted view. It
// tracks insertions since inception: the retention sweeper deleting old
// ViewEvent rows never decrements it.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Summary   string    `gorm:"size:512" json:"summary"`
	Content   string    `gorm:"type:text" json:"content"`
	Tags      string    `gorm:"size:255" json:"tags"` // comma separated
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner"`
}
