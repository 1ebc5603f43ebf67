package store

import (
	"errors"
	"time"

	"writeflow/internal/models"

	"gorm.io/gorm"
)

// BanStatus is the answer to "may this identity act right now".
type BanStatus struct {
	Banned    bool          `json:"banned"`
	Reason    string        `json:"reason,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
}

// IsBanned reports the active ban for an identity, if any. Expired bans
// are pruned on the way through and never reported as active.
func (s *Store) IsBanned(identityID uint) (BanStatus, error) {
	now := s.now()

	var bans []models.Ban
	if err := s.db.Where("identity_id = ?", identityID).Find(&bans).Error; err != nil {
		return BanStatus{}, err
	}

	var expired []uint
	status := BanStatus{}
	for _, ban := range bans {
		if ban.ExpiresAt.After(now) {
			status = BanStatus{
				Banned:    true,
				Reason:    ban.Reason,
				Remaining: ban.ExpiresAt.Sub(now),
			}
			continue
		}
		expired = append(expired, ban.ID)
	}

	if len(expired) > 0 {
		if err := s.db.Delete(&models.Ban{}, expired).Error; err != nil {
			return BanStatus{}, err
		}
	}
	return status, nil
}

// checkBanned is the gate every mutating operation runs first.
func (s *Store) checkBanned(identityID uint) error {
	status, err := s.IsBanned(identityID)
	if err != nil {
		return err
	}
	if status.Banned {
		return &BannedError{Reason: status.Reason, Remaining: status.Remaining}
	}
	return nil
}

// BanIdentity creates a time-boxed ban. An identity with an unexpired ban
// cannot be banned again; callers that want a longer sanction unban first.
func (s *Store) BanIdentity(identityID uint, reason string, durationDays int) (*models.Ban, error) {
	if durationDays <= 0 {
		return nil, invalid("duration", "must be at least one day")
	}

	unlock := s.lock(banKey(identityID))
	defer unlock()

	status, err := s.IsBanned(identityID)
	if err != nil {
		return nil, err
	}
	if status.Banned {
		return nil, ErrAlreadyBanned
	}

	now := s.now()
	ban := models.Ban{
		IdentityID: identityID,
		Reason:     reason,
		BannedAt:   now,
		ExpiresAt:  now.Add(time.Duration(durationDays) * 24 * time.Hour),
	}
	if err := s.db.Create(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

// Unban lifts the active ban if present. Idempotent.
func (s *Store) Unban(identityID uint) error {
	unlock := s.lock(banKey(identityID))
	defer unlock()

	return s.db.Where("identity_id = ?", identityID).Delete(&models.Ban{}).Error
}

// Report files a report against a post or a comment. A second report by
// the same identity for the same target is a silent no-op so UI retries
// stay idempotent. A post that accumulates enough distinct reports is
// hidden inside the same transaction.
func (s *Store) Report(targetType, pid, cid string, reporter *models.Identity, reason, detail string) error {
	if err := s.checkBanned(reporter.ID); err != nil {
		return err
	}

	if targetType != models.TargetPost && targetType != models.TargetComment {
		return invalid("target_type", "must be post or comment")
	}
	if reason == "" {
		return invalid("reason", "must not be empty")
	}

	post, err := s.findPost(pid)
	if err != nil {
		return err
	}

	targetID := post.ID
	if targetType == models.TargetComment {
		var comment models.Comment
		err := s.db.Where("cid = ? AND post_id = ?", cid, post.ID).First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		targetID = comment.ID
	}

	unlock := s.lock(reportKey(reporter.ID))
	defer unlock()

	// The duplicate lookup runs before the cooldown gate: a retry of the
	// same report stays a no-op even inside the cooldown window.
	var existing models.Report
	err = s.db.Where("target_type = ? AND target_id = ? AND reporter_id = ?",
		targetType, targetID, reporter.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.checkRateErr(ActionReport, reporter.Token); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		report := models.Report{
			TargetType: targetType,
			PostID:     post.ID,
			TargetID:   targetID,
			ReporterID: reporter.ID,
			Reason:     reason,
			Detail:     detail,
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}

		if targetType == models.TargetPost {
			var count int64
			if err := tx.Model(&models.Report{}).
				Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count >= ReportHideThreshold {
				if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
					Update("hidden", true).Error; err != nil {
					return err
				}
			}
		}

		return s.recordRate(tx, ActionReport, reporter.Token)
	})
}

func banKey(identityID uint) string {
	return "ban:" + itoa(identityID)
}

func reportKey(identityID uint) string {
	return "report:" + itoa(identityID)
}
