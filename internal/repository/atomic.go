package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles the repositories that participate in the credential
// transactions: consuming a token and applying the effect it gates must
// commit or roll back together.
type Repos struct {
	Users            UserRepository
	CredentialTokens CredentialTokenRepository
}

// Atomic runs a function against transaction-scoped repositories. Either
// every statement inside commits, or none do.
type Atomic interface {
	Transact(ctx context.Context, fn func(tx Repos) error) error
}

type GormAtomic struct {
	db *gorm.DB
}

func NewAtomic(db *gorm.DB) Atomic {
	return &GormAtomic{db: db}
}

func (a *GormAtomic) Transact(ctx context.Context, fn func(tx Repos) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos{
			Users:            NewUserRepository(tx),
			CredentialTokens: NewCredentialTokenRepository(tx),
		})
	})
}
