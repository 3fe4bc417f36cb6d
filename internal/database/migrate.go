package database

import (
	"github.com/blogverse/blogverse/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.CredentialToken{},
		&domain.Story{},
		&domain.Tag{},
		&domain.StoryClap{},
		&domain.Comment{},
		&domain.CommentClap{},
		&domain.Follow{},
	)
}
