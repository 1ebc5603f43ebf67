package models

import (
	"time"
)

// RateLimitEntry stores the last admitted action time for one
// (action type, scope key) pair. Overwritten on every admitted action.
type RateLimitEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActionType   string    `gorm:"size:20;not null;uniqueIndex:idx_rate_scope" json:"action_type"`
	ScopeKey     string    `gorm:"size:64;not null;uniqueIndex:idx_rate_scope" json:"scope_key"`
	LastActionAt time.Time `gorm:"not null" json:"last_action_at"`
}
