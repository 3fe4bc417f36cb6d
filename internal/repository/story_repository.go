package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blogverse/blogverse/internal/domain"
)

var (
	ErrStoryNotFound   = errors.New("story not found")
	ErrClapCapExceeded = errors.New("clap cap exceeded")
)

// FeedFilter selects and orders the public story feed.
type FeedFilter struct {
	Tag  string // optional tag name
	Sort string // "latest" (default) or "claps"
	ListRequest
}

type StoryRepository interface {
	Create(story *domain.Story, tagNames []string) error
	FindByID(id uuid.UUID) (*domain.Story, error)
	FindBySlug(slug string) (*domain.Story, error)
	SlugExists(slug string) (bool, error)
	Update(id uuid.UUID, fields map[string]any) error
	ReplaceTags(storyID uuid.UUID, tagNames []string) error
	Delete(id uuid.UUID) error
	Feed(filter FeedFilter) (ListResult[domain.Story], error)
	FeedByAuthors(authorIDs []uuid.UUID, req ListRequest) (ListResult[domain.Story], error)
	AddClap(storyID, userID uuid.UUID, maxPerUser int, now time.Time) error
}

type GormStoryRepository struct{ db *gorm.DB }

func NewStoryRepository(db *gorm.DB) StoryRepository { return &GormStoryRepository{db: db} }

func (r *GormStoryRepository) Create(story *domain.Story, tagNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(story).Error; err != nil {
			return err
		}
		return linkTags(tx, story, tagNames)
	})
}

func (r *GormStoryRepository) FindByID(id uuid.UUID) (*domain.Story, error) {
	var s domain.Story
	if err := r.db.Preload("Tags").Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormStoryRepository) FindBySlug(slug string) (*domain.Story, error) {
	var s domain.Story
	if err := r.db.Preload("Tags").Where("slug = ?", slug).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormStoryRepository) SlugExists(slug string) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.Story{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormStoryRepository) Update(id uuid.UUID, fields map[string]any) error {
	res := r.db.Model(&domain.Story{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStoryNotFound
	}
	return nil
}

func (r *GormStoryRepository) ReplaceTags(storyID uuid.UUID, tagNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		story := domain.Story{ID: storyID}
		if err := tx.Model(&story).Association("Tags").Clear(); err != nil {
			return err
		}
		return linkTags(tx, &story, tagNames)
	})
}

func (r *GormStoryRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		story := domain.Story{ID: id}
		if err := tx.Model(&story).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&domain.StoryClap{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Story{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStoryNotFound
		}
		return nil
	})
}

func (r *GormStoryRepository) Feed(filter FeedFilter) (ListResult[domain.Story], error) {
	req := normalizeListRequest(filter.ListRequest)

	q := r.db.Model(&domain.Story{}).Where("status = ?", domain.StoryStatusPublished)
	if filter.Tag != "" {
		q = q.Where("id IN (?)", r.db.Table("story_tags").
			Select("story_tags.story_id").
			Joins("JOIN tags ON tags.id = story_tags.tag_id").
			Where("tags.name = ?", filter.Tag))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult[domain.Story]{}, err
	}

	switch filter.Sort {
	case "claps":
		q = q.Order("clap_count DESC")
	default:
		q = q.Order("published_at DESC")
	}

	var stories []domain.Story
	if err := q.Preload("Tags").Limit(req.Limit).Offset(req.Offset).Find(&stories).Error; err != nil {
		return ListResult[domain.Story]{}, err
	}
	return ListResult[domain.Story]{Items: stories, Total: total, HasMore: hasMore(total, req, len(stories))}, nil
}

func (r *GormStoryRepository) FeedByAuthors(authorIDs []uuid.UUID, req ListRequest) (ListResult[domain.Story], error) {
	req = normalizeListRequest(req)
	if len(authorIDs) == 0 {
		return ListResult[domain.Story]{Items: []domain.Story{}}, nil
	}

	q := r.db.Model(&domain.Story{}).
		Where("status = ? AND author_id IN ?", domain.StoryStatusPublished, authorIDs)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult[domain.Story]{}, err
	}

	var stories []domain.Story
	if err := q.Preload("Tags").Order("published_at DESC").
		Limit(req.Limit).Offset(req.Offset).Find(&stories).Error; err != nil {
		return ListResult[domain.Story]{}, err
	}
	return ListResult[domain.Story]{Items: stories, Total: total, HasMore: hasMore(total, req, len(stories))}, nil
}

// AddClap records one clap inside a single transaction: per-user cap check,
// per-user counter upsert, denormalized story total.
func (r *GormStoryRepository) AddClap(storyID, userID uuid.UUID, maxPerUser int, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Story{}).Where("id = ?", storyID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrStoryNotFound
		}

		var clap domain.StoryClap
		err := tx.Where("story_id = ? AND user_id = ?", storyID, userID).First(&clap).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			clap = domain.StoryClap{StoryID: storyID, UserID: userID, Claps: 1, UpdatedAt: now}
			if err := tx.Create(&clap).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if clap.Claps >= maxPerUser {
				return ErrClapCapExceeded
			}
			res := tx.Model(&domain.StoryClap{}).
				Where("story_id = ? AND user_id = ?", storyID, userID).
				Updates(map[string]any{"claps": gorm.Expr("claps + 1"), "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
		}

		return tx.Model(&domain.Story{}).Where("id = ?", storyID).
			Update("clap_count", gorm.Expr("clap_count + 1")).Error
	})
}

// normalizeTagNames trims whitespace and drops empties and duplicates,
// preserving first-seen order.
func normalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// linkTags upserts tag rows by name and attaches them to the story.
func linkTags(tx *gorm.DB, story *domain.Story, tagNames []string) error {
	for _, name := range normalizeTagNames(tagNames) {
		tag := domain.Tag{Name: name}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&tag).Error; err != nil {
			return err
		}
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return err
		}
		if err := tx.Model(story).Association("Tags").Append(&tag); err != nil {
			return err
		}
	}
	return nil
}
