package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StoryStatus string

const (
	StoryStatusDraft     StoryStatus = "draft"
	StoryStatusPublished StoryStatus = "published"
)

type Story struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Subtitle    *string        `gorm:"size:255" json:"subtitle"`
	Content     datatypes.JSON `gorm:"not null" json:"content"`
	Slug        string         `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Status      StoryStatus    `gorm:"size:16;not null;default:draft;index" json:"status"`
	ClapCount   int            `gorm:"not null;default:0" json:"clap_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	PublishedAt *time.Time     `json:"published_at"`
	Tags        []Tag          `gorm:"many2many:story_tags" json:"-"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StoryClap tracks per-reader applause so the 50-clap cap can be enforced.
// Story.ClapCount is the denormalized sum across all readers.
type StoryClap struct {
	StoryID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"story_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Claps     int       `gorm:"not null;default:0" json:"claps"`
	UpdatedAt time.Time `json:"updated_at"`
}
