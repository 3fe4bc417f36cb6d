package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenType distinguishes the two single-use credential token flows.
type TokenType string

const (
	TokenTypeEmailVerification TokenType = "email_verification"
	TokenTypePasswordReset     TokenType = "password_reset"
)

// CredentialToken is a single-use, typed, time-bounded secret backing the
// email verification and password reset links.
type CredentialToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_credential_tokens_user_type" json:"user_id"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	TokenType TokenType  `gorm:"size:32;not null;index:idx_credential_tokens_user_type" json:"token_type"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *CredentialToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsLive reports whether the token can still be redeemed at the given
// instant. Liveness is derived, never stored, so the row and the predicate
// cannot drift.
func (t *CredentialToken) IsLive(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
