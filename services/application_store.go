package services

import (
	"context"
	"errors"
	"time"

	"university-portal-api/models"

	"gorm.io/gorm"
)

// OfferChange is the set of workflow columns a transition writes. A nil
// ConfirmationToken, TokenExpiry or RejectedBy clears the column.
type OfferChange struct {
	Status            models.OfferStatus
	ConfirmationToken *string
	TokenExpiry       *time.Time
	RejectedBy        *models.RejectedBy
	// Fields carries domain columns written alongside the transition.
	Fields map[string]interface{}
}

func (c OfferChange) columns() map[string]interface{} {
	cols := make(map[string]interface{}, len(c.Fields)+4)
	for k, v := range c.Fields {
		cols[k] = v
	}
	cols["status"] = string(c.Status)
	cols["confirmation_token"] = nil
	if c.ConfirmationToken != nil {
		cols["confirmation_token"] = *c.ConfirmationToken
	}
	cols["token_expiry"] = nil
	if c.TokenExpiry != nil {
		cols["token_expiry"] = *c.TokenExpiry
	}
	cols["rejected_by"] = nil
	if c.RejectedBy != nil {
		cols["rejected_by"] = string(*c.RejectedBy)
	}
	return cols
}

// ApplicationStore persists one kind of application. ConditionalUpdate and
// DeletePending apply only when the stored status (and token, when given)
// still match, and report whether a row was changed.
type ApplicationStore[A any] interface {
	FindByID(ctx context.Context, id string) (*A, error)
	ConditionalUpdate(ctx context.Context, id string, expected models.OfferStatus, expectedToken string, change OfferChange) (bool, error)
	DeletePending(ctx context.Context, id string) (bool, error)
}

// GormApplicationStore implements ApplicationStore with single-statement
// conditional writes, so concurrent transitions are decided by the database.
type GormApplicationStore[A any] struct {
	db *gorm.DB
}

func NewGormApplicationStore[A any](db *gorm.DB) *GormApplicationStore[A] {
	return &GormApplicationStore[A]{db: db}
}

func (s *GormApplicationStore[A]) FindByID(ctx context.Context, id string) (*A, error) {
	var app A
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (s *GormApplicationStore[A]) ConditionalUpdate(ctx context.Context, id string, expected models.OfferStatus, expectedToken string, change OfferChange) (bool, error) {
	query := s.db.WithContext(ctx).Model(new(A)).Where("id = ? AND status = ?", id, string(expected))
	if expectedToken != "" {
		query = query.Where("confirmation_token = ?", expectedToken)
	}
	res := query.Updates(change.columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormApplicationStore[A]) DeletePending(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(models.OfferStatusPending)).
		Delete(new(A))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
