package store

import (
	"errors"
	"fmt"

	"writeflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResolveUser returns the registered identity for a user, creating it on
// first contact. The identity display name is snapshotted from the user's
// nickname at creation time.
func (s *Store) ResolveUser(userID uint) (*models.Identity, error) {
	token := fmt.Sprintf("user:%d", userID)

	unlock := s.lock("identity:" + token)
	defer unlock()

	var identity models.Identity
	err := s.db.Where("token = ?", token).First(&identity).Error
	if err == nil {
		return &identity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	identity = models.Identity{
		Token:       token,
		Kind:        models.IdentityRegistered,
		DisplayName: user.Nickname,
		UserID:      &user.ID,
	}
	if err := s.db.Create(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// ResolveAnonymous returns the stable anonymous identity for a client
// token, creating both when the token is absent or malformed. The returned
// token must be persisted by the caller (session cookie) so the same client
// keeps resolving to the same identity.
func (s *Store) ResolveAnonymous(token string) (*models.Identity, string, error) {
	if _, err := uuid.Parse(token); err != nil {
		// Malformed or missing token degrades to a fresh identity.
		token = uuid.NewString()
	}

	unlock := s.lock("identity:" + token)
	defer unlock()

	var identity models.Identity
	err := s.db.Where("token = ?", token).First(&identity).Error
	if err == nil {
		return &identity, token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	identity = models.Identity{
		Token:       token,
		Kind:        models.IdentityAnonymous,
		DisplayName: "anon-" + token[:8],
	}
	if err := s.db.Create(&identity).Error; err != nil {
		return nil, "", err
	}
	return &identity, token, nil
}

// GetIdentity looks an identity up by its numeric id.
func (s *Store) GetIdentity(id uint) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.First(&identity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}
