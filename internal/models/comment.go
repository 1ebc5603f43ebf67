package models

import (
	"time"
)

type Comment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Cid              string    `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	PostID           uint      `gorm:"not null;index" json:"post_id"`
	ParentID         *uint     `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	AuthorIdentityID uint      `gorm:"not null;index" json:"author_id"`
	AuthorName       string    `gorm:"size:40;not null" json:"author_name"`
	PasswordHash     string    `gorm:"size:80" json:"-"` // set iff author is anonymous
	Content          string    `gorm:"type:text;not null" json:"content"`
	CreatedAt        time.Time `json:"created_at"`
}
