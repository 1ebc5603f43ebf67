package models

import (
	"time"
)

// Report target types.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetType string    `gorm:"size:20;not null;uniqueIndex:idx_report_once" json:"target_type"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_report_once" json:"target_id"` // post or comment id
	ReporterID uint      `gorm:"not null;uniqueIndex:idx_report_once" json:"reporter_id"`
	Reason     string    `gorm:"size:200;not null" json:"reason"`
	Detail     string    `gorm:"size:1000" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ban is a time-boxed sanction on an identity. A ban whose ExpiresAt has
// passed is inert and gets pruned lazily on read.
type Ban struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	IdentityID uint      `gorm:"not null;index" json:"identity_id"`
	Reason     string    `gorm:"size:200;not null" json:"reason"`
	BannedAt   time.Time `gorm:"not null" json:"banned_at"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
}
