package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
)

// ErrCredentialTokenNotFound covers absent, consumed and expired tokens
// alike; the three cases are deliberately indistinguishable.
var ErrCredentialTokenNotFound = errors.New("credential token not found")

type CredentialTokenRepository interface {
	Create(token *domain.CredentialToken) error
	InvalidateLiveByUserType(userID uuid.UUID, tokenType domain.TokenType, now time.Time) error
	FindLiveByToken(token string, tokenType domain.TokenType, now time.Time) (*domain.CredentialToken, error)
	Consume(tokenID uuid.UUID, now time.Time) error
}

type GormCredentialTokenRepository struct{ db *gorm.DB }

func NewCredentialTokenRepository(db *gorm.DB) CredentialTokenRepository {
	return &GormCredentialTokenRepository{db: db}
}

func (r *GormCredentialTokenRepository) Create(token *domain.CredentialToken) error {
	return r.db.Create(token).Error
}

func (r *GormCredentialTokenRepository) InvalidateLiveByUserType(userID uuid.UUID, tokenType domain.TokenType, now time.Time) error {
	return r.db.Model(&domain.CredentialToken{}).
		Where("user_id = ? AND token_type = ? AND used_at IS NULL AND expires_at > ?", userID, tokenType, now).
		Update("used_at", now).Error
}

func (r *GormCredentialTokenRepository) FindLiveByToken(token string, tokenType domain.TokenType, now time.Time) (*domain.CredentialToken, error) {
	var t domain.CredentialToken
	err := r.db.Where("token = ? AND token_type = ? AND used_at IS NULL AND expires_at > ?", token, tokenType, now).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Consume marks the token used. The used_at IS NULL guard makes concurrent
// redemptions race safely: exactly one caller sees RowsAffected == 1.
func (r *GormCredentialTokenRepository) Consume(tokenID uuid.UUID, now time.Time) error {
	res := r.db.Model(&domain.CredentialToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Update("used_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialTokenNotFound
	}
	return nil
}
