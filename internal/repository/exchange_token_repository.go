package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/observability"
)

// ErrExchangeTokenNotFound covers absent, expired, and already-used tokens
// alike; callers must not be able to distinguish the three.
var ErrExchangeTokenNotFound = errors.New("exchange token not found")

type ExchangeTokenRepository interface {
	Create(token *domain.ExchangeToken) error
	FindActiveByHash(hash string, now time.Time) (*domain.ExchangeToken, error)
	Consume(id uint, now time.Time) error
	DeleteExpired(now time.Time) (int64, error)
}

type GormExchangeTokenRepository struct{ db *gorm.DB }

func NewExchangeTokenRepository(db *gorm.DB) ExchangeTokenRepository {
	return &GormExchangeTokenRepository{db: db}
}

func (r *GormExchangeTokenRepository) Create(token *domain.ExchangeToken) error {
	if err := r.db.Create(token).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "exchange_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "exchange_token", "create", "success")
	return nil
}

func (r *GormExchangeTokenRepository) FindActiveByHash(hash string, now time.Time) (*domain.ExchangeToken, error) {
	var token domain.ExchangeToken
	err := r.db.
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hash, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "exchange_token", "find_active", "not_found")
			return nil, ErrExchangeTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "exchange_token", "find_active", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "exchange_token", "find_active", "success")
	return &token, nil
}

// Consume marks a token used with a conditional update. Exactly one caller
// can win the update for a given token; racing callers observe not-found.
func (r *GormExchangeTokenRepository) Consume(id uint, now time.Time) error {
	res := r.db.Model(&domain.ExchangeToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, now).
		Update("used_at", now)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "exchange_token", "consume", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "exchange_token", "consume", "not_found")
		return ErrExchangeTokenNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "exchange_token", "consume", "success")
	return nil
}

func (r *GormExchangeTokenRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ? OR used_at IS NOT NULL", now).Delete(&domain.ExchangeToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "exchange_token", "delete_expired", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "exchange_token", "delete_expired", "success")
	return res.RowsAffected, nil
}
