package store

import (
	"errors"

	"writeflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyResult reports whether an engagement action was counted and the
// counter value afterwards. Applied false is not an error: the action had
// already been counted for this identity.
type ApplyResult struct {
	Applied bool `json:"applied"`
	Count   int  `json:"count"`
}

// Like counts one like per (post, identity), ever. The author liking their
// own post is Forbidden rather than a silent no-op so the caller can say
// why nothing happened.
func (s *Store) Like(pid string, actor *models.Identity) (*ApplyResult, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	post, err := s.findPost(pid)
	if err != nil {
		return nil, err
	}
	if post.AuthorIdentityID == actor.ID {
		return nil, ErrForbidden
	}

	unlock := s.lock("like:" + itoa(post.ID) + ":" + itoa(actor.ID))
	defer unlock()

	var existing models.LikeRecord
	err = s.db.Where("post_id = ? AND identity_id = ?", post.ID, actor.ID).First(&existing).Error
	if err == nil {
		return &ApplyResult{Applied: false, Count: post.LikeCount}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The counter is re-read inside the transaction; the row read before
	// the stripe was taken may be stale.
	var count int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := models.LikeRecord{PostID: post.ID, IdentityID: actor.ID}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Select("like_count").
			Where("id = ?", post.ID).Scan(&count).Error
	})
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Applied: true, Count: count}, nil
}

// View counts at most one view per (post, identity) per window. The
// author's own views never move the counter.
func (s *Store) View(pid string, actor *models.Identity) (*ApplyResult, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	post, err := s.findPost(pid)
	if err != nil {
		return nil, err
	}
	if post.AuthorIdentityID == actor.ID {
		return &ApplyResult{Applied: false, Count: post.ViewCount}, nil
	}

	unlock := s.lock("view:" + itoa(post.ID) + ":" + itoa(actor.ID))
	defer unlock()

	now := s.now()

	var existing models.ViewRecord
	err = s.db.Where("post_id = ? AND identity_id = ?", post.ID, actor.ID).First(&existing).Error
	if err == nil && now.Sub(existing.LastViewedAt) < ViewWindow {
		return &ApplyResult{Applied: false, Count: post.ViewCount}, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var count int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := models.ViewRecord{PostID: post.ID, IdentityID: actor.ID, LastViewedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_viewed_at"}),
		}).Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Select("view_count").
			Where("id = ?", post.ID).Scan(&count).Error
	})
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Applied: true, Count: count}, nil
}

// ClickStamp counts one click per (post, stamp, identity). The stamp must
// belong to the post's stamp set.
func (s *Store) ClickStamp(pid, stampID string, actor *models.Identity) (*ApplyResult, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	post, err := s.findPost(pid)
	if err != nil {
		return nil, err
	}

	var stamp models.PostStamp
	err = s.db.Where("post_id = ? AND stamp_id = ?", post.ID, stampID).First(&stamp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid("stamp_id", "not enabled on this post")
	}
	if err != nil {
		return nil, err
	}

	unlock := s.lock("stamp:" + itoa(post.ID) + ":" + stampID + ":" + itoa(actor.ID))
	defer unlock()

	var existing models.StampRecord
	err = s.db.Where("post_id = ? AND stamp_id = ? AND identity_id = ?",
		post.ID, stampID, actor.ID).First(&existing).Error
	if err == nil {
		return &ApplyResult{Applied: false, Count: stamp.ClickCount}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var count int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := models.StampRecord{PostID: post.ID, StampID: stampID, IdentityID: actor.ID}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PostStamp{}).Where("id = ?", stamp.ID).
			UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.PostStamp{}).Select("click_count").
			Where("id = ?", stamp.ID).Scan(&count).Error
	})
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Applied: true, Count: count}, nil
}
