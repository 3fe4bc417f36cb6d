package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
)

func TestUserRepositoryCreateAndLookups(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateForTest(t, db, &domain.User{})
	repo := NewUserRepository(db)

	user := &domain.User{Username: "grace", Email: "grace@example.com", PasswordHash: "h"}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	byEmail, err := repo.FindByEmail("grace@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("id mismatch: got %s want %s", byEmail.ID, user.ID)
	}
	byUsername, err := repo.FindByUsername("grace")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byUsername.ID != user.ID {
		t.Fatalf("id mismatch: got %s want %s", byUsername.ID, user.ID)
	}

	if _, err := repo.FindByEmail("nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryDuplicateKeys(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateForTest(t, db, &domain.User{})
	repo := NewUserRepository(db)

	if err := repo.Create(&domain.User{Username: "heidi", Email: "heidi@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Create(&domain.User{Username: "heidi", Email: "heidi2@example.com", PasswordHash: "h"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key on username, got %v", err)
	}
	err = repo.Create(&domain.User{Username: "heidi2", Email: "heidi@example.com", PasswordHash: "h"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key on email, got %v", err)
	}
}

func TestUserRepositoryUpdates(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateForTest(t, db, &domain.User{})
	repo := NewUserRepository(db)
	user := createUserForTest(t, db, "ivan")

	now := time.Now().UTC()
	if err := repo.MarkEmailVerified(user.ID, now); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	if err := repo.UpdatePasswordHash(user.ID, "newhash", now); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	bio := "writes about databases"
	if err := repo.UpdateProfile(user.ID, map[string]any{"bio": &bio}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	loaded, err := repo.FindByID(user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !loaded.EmailVerified || loaded.PasswordHash != "newhash" {
		t.Fatalf("unexpected user after updates: %+v", loaded)
	}
	if loaded.Bio == nil || *loaded.Bio != bio {
		t.Fatalf("bio not updated: %+v", loaded.Bio)
	}

	missing := uuid.New()
	if err := repo.MarkEmailVerified(missing, now); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.UpdatePasswordHash(missing, "x", now); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryFindByIDs(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateForTest(t, db, &domain.User{})
	repo := NewUserRepository(db)

	a := createUserForTest(t, db, "judy")
	b := createUserForTest(t, db, "karl")

	got, err := repo.FindByIDs([]uuid.UUID{a.ID, b.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	if got[a.ID].Username != "judy" || got[b.ID].Username != "karl" {
		t.Fatalf("unexpected map contents: %+v", got)
	}

	empty, err := repo.FindByIDs(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v %v", empty, err)
	}
}
