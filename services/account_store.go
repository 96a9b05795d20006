package services

import (
	"context"
	"errors"
	"time"

	"university-portal-api/models"

	"gorm.io/gorm"
)

var (
	ErrDuplicateAccount = errors.New("account: duplicate email or application")
	ErrAccountNotFound  = errors.New("account: not found")
)

// AccountStore persists login accounts. Email and application id are unique.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByApplicationID(ctx context.Context, applicationID string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePassword(ctx context.Context, userID int, hashedPassword string, now time.Time) error
}

type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) Create(ctx context.Context, account *models.Account) error {
	err := s.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateAccount
	}
	return err
}

func (s *GormAccountStore) FindByApplicationID(ctx context.Context, applicationID string) (*models.Account, error) {
	return s.first(ctx, "application_id = ? AND delete_at IS NULL", applicationID)
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.first(ctx, "email = ? AND delete_at IS NULL", email)
}

func (s *GormAccountStore) first(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where(query, args...).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *GormAccountStore) UpdatePassword(ctx context.Context, userID int, hashedPassword string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"password":  hashedPassword,
			"update_at": now,
		}).Error
}
