package store

import (
	"errors"
	"time"

	"writeflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateDecision is the outcome of a cooldown check.
type RateDecision struct {
	Allowed   bool          `json:"allowed"`
	Remaining time.Duration `json:"remaining"`
}

// CheckRate decides whether an action is admitted for a scope key. The
// clock is read at check time; nothing here is cached.
func (s *Store) CheckRate(action, scopeKey string) (RateDecision, error) {
	cooldown, ok := s.Cooldowns[action]
	if !ok {
		return RateDecision{Allowed: true}, nil
	}

	var entry models.RateLimitEntry
	err := s.db.Where("action_type = ? AND scope_key = ?", action, scopeKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RateDecision{Allowed: true}, nil
	}
	if err != nil {
		return RateDecision{}, err
	}

	remaining := cooldown - s.now().Sub(entry.LastActionAt)
	if remaining > 0 {
		return RateDecision{Allowed: false, Remaining: remaining}, nil
	}
	return RateDecision{Allowed: true}, nil
}

// checkRateErr is the gate form of CheckRate used inside mutations.
func (s *Store) checkRateErr(action, scopeKey string) error {
	decision, err := s.CheckRate(action, scopeKey)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &RateLimitedError{Action: action, Remaining: decision.Remaining}
	}
	return nil
}

// recordRate overwrites the last-action time for (action, scope). Only
// called inside the transaction of an action that actually succeeded;
// recording a rejected attempt would wrongly extend the cooldown.
func (s *Store) recordRate(tx *gorm.DB, action, scopeKey string) error {
	entry := models.RateLimitEntry{
		ActionType:   action,
		ScopeKey:     scopeKey,
		LastActionAt: s.now(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_type"}, {Name: "scope_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_action_at"}),
	}).Create(&entry).Error
}
