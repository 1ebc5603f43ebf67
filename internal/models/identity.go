package models

import (
	"time"
)

// Identity kinds. Every actor in the store is an Identity, whether they
// ever registered or not.
const (
	IdentityAnonymous  = "anonymous"
	IdentityRegistered = "registered"
)

// Identity is the stable pseudonymous actor reference used for
// authorization and engagement dedup. Anonymous identities are keyed by the
// client token persisted in the session cookie; registered identities are
// bound to a User row. Immutable once created.
type Identity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Token       string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Kind        string    `gorm:"size:20;not null" json:"kind"`
	DisplayName string    `gorm:"size:40;not null" json:"display_name"`
	UserID      *uint     `gorm:"index" json:"-"` // set for registered identities
	CreatedAt   time.Time `json:"created_at"`
}

// Registered reports whether this identity belongs to an authenticated user.
func (i *Identity) Registered() bool {
	return i.Kind == IdentityRegistered
}
