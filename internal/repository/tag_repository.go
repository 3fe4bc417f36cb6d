package repository

import (
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
)

type TagRepository interface {
	ListAll() ([]domain.Tag, error)
}

type GormTagRepository struct{ db *gorm.DB }

func NewTagRepository(db *gorm.DB) TagRepository { return &GormTagRepository{db: db} }

func (r *GormTagRepository) ListAll() ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.Order("name ASC").Find(&tags).Error
	return tags, err
}
