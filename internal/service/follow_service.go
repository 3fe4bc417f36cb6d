package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/repository"
)

var ErrSelfFollow = errors.New("users cannot follow themselves")

// Profile is a user's public card plus their social counts.
type Profile struct {
	User           domain.PublicUser `json:"user"`
	FollowerCount  int64             `json:"follower_count"`
	FollowingCount int64             `json:"following_count"`
	Following      *bool             `json:"following,omitempty"`
}

type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

func (s *FollowService) Follow(ctx context.Context, followerID, targetID uuid.UUID) error {
	if followerID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.users.FindByID(targetID); err != nil {
		return err
	}
	return s.follows.Follow(followerID, targetID)
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uuid.UUID) error {
	return s.follows.Unfollow(followerID, targetID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID uuid.UUID) (bool, error) {
	return s.follows.Exists(followerID, targetID)
}

// Profile returns the target's public card with counts. When viewerID is
// set, Following reports the viewer's relationship to the target.
func (s *FollowService) Profile(ctx context.Context, targetID uuid.UUID, viewerID *uuid.UUID) (*Profile, error) {
	user, err := s.users.FindByID(targetID)
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.CountFollowers(targetID)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.CountFollowing(targetID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		User:           user.Public(),
		FollowerCount:  followers,
		FollowingCount: following,
	}
	if viewerID != nil && *viewerID != targetID {
		isFollowing, err := s.follows.Exists(*viewerID, targetID)
		if err != nil {
			return nil, err
		}
		profile.Following = &isFollowing
	}
	return profile, nil
}

// FollowerEntry is one row of a followers or following listing.
type FollowerEntry struct {
	User       domain.PublicUser `json:"user"`
	FollowedAt time.Time         `json:"followed_at"`
}

func (s *FollowService) Followers(ctx context.Context, userID uuid.UUID, req repository.ListRequest) ([]FollowerEntry, int64, bool, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		return nil, 0, false, err
	}
	page, err := s.follows.ListFollowers(userID, req)
	if err != nil {
		return nil, 0, false, err
	}
	return followerEntries(page.Items), page.Total, page.HasMore, nil
}

func (s *FollowService) Following(ctx context.Context, userID uuid.UUID, req repository.ListRequest) ([]FollowerEntry, int64, bool, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		return nil, 0, false, err
	}
	page, err := s.follows.ListFollowing(userID, req)
	if err != nil {
		return nil, 0, false, err
	}
	return followerEntries(page.Items), page.Total, page.HasMore, nil
}

func followerEntries(items []repository.FollowedUser) []FollowerEntry {
	out := make([]FollowerEntry, 0, len(items))
	for _, item := range items {
		out = append(out, FollowerEntry{User: item.User.Public(), FollowedAt: item.FollowedAt})
	}
	return out
}
