package repository

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogverse/blogverse/internal/domain"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	// A second pooled connection would see an empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func migrateForTest(t *testing.T, db *gorm.DB, models ...any) {
	t.Helper()
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func createUserForTest(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func createStoryForTest(t *testing.T, db *gorm.DB, author *domain.User, title, slug string, publishedAt *time.Time) *domain.Story {
	t.Helper()
	s := &domain.Story{
		AuthorID: author.ID,
		Title:    title,
		Content:  []byte(`{"blocks":[]}`),
		Slug:     slug,
		Status:   domain.StoryStatusDraft,
	}
	if publishedAt != nil {
		s.Status = domain.StoryStatusPublished
		s.PublishedAt = publishedAt
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create story %s: %v", slug, err)
	}
	return s
}
