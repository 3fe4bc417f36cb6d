package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blogverse/blogverse/internal/domain"
)

var ErrFollowNotFound = errors.New("follow relationship not found")

// FollowedUser is a user row joined with when the relationship was created.
type FollowedUser struct {
	User       domain.User
	FollowedAt time.Time
}

type FollowRepository interface {
	Follow(followerID, followingID uuid.UUID) error
	Unfollow(followerID, followingID uuid.UUID) error
	Exists(followerID, followingID uuid.UUID) (bool, error)
	CountFollowers(userID uuid.UUID) (int64, error)
	CountFollowing(userID uuid.UUID) (int64, error)
	ListFollowers(userID uuid.UUID, req ListRequest) (ListResult[FollowedUser], error)
	ListFollowing(userID uuid.UUID, req ListRequest) (ListResult[FollowedUser], error)
	FollowingIDs(userID uuid.UUID) ([]uuid.UUID, error)
}

type GormFollowRepository struct{ db *gorm.DB }

func NewFollowRepository(db *gorm.DB) FollowRepository { return &GormFollowRepository{db: db} }

// Follow is idempotent: re-following an already-followed user is a no-op.
func (r *GormFollowRepository) Follow(followerID, followingID uuid.UUID) error {
	f := domain.Follow{FollowerID: followerID, FollowingID: followingID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&f).Error
}

func (r *GormFollowRepository) Unfollow(followerID, followingID uuid.UUID) error {
	res := r.db.Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFollowNotFound
	}
	return nil
}

func (r *GormFollowRepository) Exists(followerID, followingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormFollowRepository) CountFollowers(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *GormFollowRepository) CountFollowing(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *GormFollowRepository) ListFollowers(userID uuid.UUID, req ListRequest) (ListResult[FollowedUser], error) {
	return r.listRelated(req,
		r.db.Model(&domain.Follow{}).Where("following_id = ?", userID),
		"follows.follower_id")
}

func (r *GormFollowRepository) ListFollowing(userID uuid.UUID, req ListRequest) (ListResult[FollowedUser], error) {
	return r.listRelated(req,
		r.db.Model(&domain.Follow{}).Where("follower_id = ?", userID),
		"follows.following_id")
}

func (r *GormFollowRepository) listRelated(req ListRequest, q *gorm.DB, joinColumn string) (ListResult[FollowedUser], error) {
	req = normalizeListRequest(req)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ListResult[FollowedUser]{}, err
	}

	type row struct {
		domain.User
		FollowedAt time.Time
	}
	var rows []row
	err := q.Session(&gorm.Session{}).
		Select("users.*, follows.created_at AS followed_at").
		Joins("JOIN users ON users.id = " + joinColumn).
		Order("follows.created_at DESC").
		Limit(req.Limit).Offset(req.Offset).
		Scan(&rows).Error
	if err != nil {
		return ListResult[FollowedUser]{}, err
	}

	items := make([]FollowedUser, 0, len(rows))
	for _, rr := range rows {
		items = append(items, FollowedUser{User: rr.User, FollowedAt: rr.FollowedAt})
	}
	return ListResult[FollowedUser]{Items: items, Total: total, HasMore: hasMore(total, req, len(items))}, nil
}

func (r *GormFollowRepository) FollowingIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&domain.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error
	return ids, err
}
