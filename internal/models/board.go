package models

type Board struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Description string `gorm:"size:200" json:"description"`
}
