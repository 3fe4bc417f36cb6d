package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
)

var defaultTags = []string{
	"programming",
	"go",
	"databases",
	"web",
	"devops",
	"writing",
	"productivity",
	"design",
}

type SeedReport struct {
	CreatedTags int  `json:"created_tags"`
	Noop        bool `json:"noop"`
}

func Seed(db *gorm.DB) error {
	_, err := SeedSync(db)
	return err
}

// SeedSync is idempotent: tags already present are left alone.
func SeedSync(db *gorm.DB) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &SeedReport{}
	for _, name := range defaultTags {
		tag := domain.Tag{Name: name}
		res := db.Where("name = ?", name).FirstOrCreate(&tag)
		if res.Error != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedTags++
		}
	}

	report.Noop = report.CreatedTags == 0
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}

// VerifyEmail flips a user's verified flag directly. Development tooling
// only; the server path goes through credential tokens.
func VerifyEmail(db *gorm.DB, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res := db.Model(&domain.User{}).
		Where("email = ?", email).
		Updates(map[string]any{"email_verified": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}
	return nil
}
