package models

import (
	"time"
)

// LikeRecord marks that an identity already liked a post. At most one row
// per (post, identity); the unique index is the dedup guarantee of last
// resort under concurrent writes.
type LikeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;uniqueIndex:idx_like_post_identity" json:"post_id"`
	IdentityID uint      `gorm:"not null;uniqueIndex:idx_like_post_identity" json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ViewRecord tracks the last counted view per (post, identity). A view is
// re-counted only after the window elapses.
type ViewRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_view_post_identity" json:"post_id"`
	IdentityID   uint      `gorm:"not null;uniqueIndex:idx_view_post_identity" json:"identity_id"`
	LastViewedAt time.Time `gorm:"not null" json:"last_viewed_at"`
}

// StampRecord marks that an identity already clicked a stamp on a post.
type StampRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;uniqueIndex:idx_stamp_click" json:"post_id"`
	StampID    string    `gorm:"size:20;not null;uniqueIndex:idx_stamp_click" json:"stamp_id"`
	IdentityID uint      `gorm:"not null;uniqueIndex:idx_stamp_click" json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}
