package models

import (
	"time"
)

type Post struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Pid                string    `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	BoardID            uint      `gorm:"not null;index" json:"board_id"`
	Board              Board     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"board"`
	Title              string    `gorm:"size:50" json:"title"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	AuthorIdentityID   uint      `gorm:"not null;index" json:"author_id"`
	AuthorName         string    `gorm:"size:40;not null" json:"author_name"`
	IsRegisteredAuthor bool      `gorm:"not null;default:false" json:"is_registered_author"`
	PasswordHash       string    `gorm:"size:80" json:"-"` // set iff author is anonymous
	LikeCount          int       `gorm:"default:0" json:"like_count"`
	ViewCount          int       `gorm:"default:0" json:"view_count"`
	Hidden             bool      `gorm:"default:false;index" json:"hidden"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Tags   []PostTag   `gorm:"constraint:OnDelete:CASCADE;" json:"tags"`
	Stamps []PostStamp `gorm:"constraint:OnDelete:CASCADE;" json:"stamps"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

type PostTag struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	PostID uint   `gorm:"not null;uniqueIndex:idx_post_tag" json:"-"`
	Name   string `gorm:"size:30;not null;uniqueIndex:idx_post_tag;index" json:"name"`
}

// PostStamp is one named reaction available on a post, with its running
// click count. The set is fixed at creation time.
type PostStamp struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	PostID     uint   `gorm:"not null;uniqueIndex:idx_post_stamp" json:"-"`
	StampID    string `gorm:"size:20;not null;uniqueIndex:idx_post_stamp" json:"stamp_id"`
	Label      string `gorm:"size:20;not null" json:"label"`
	ClickCount int    `gorm:"default:0" json:"click_count"`
}
