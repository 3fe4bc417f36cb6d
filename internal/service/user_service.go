package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/repository"
)

const maxBioLength = 500

var ErrStorageDisabled = errors.New("avatar storage is not configured")

type UpdateProfileInput struct {
	Bio *string
}

type UserService struct {
	users   repository.UserRepository
	storage AvatarStorage // nil when object storage is disabled
	logger  *slog.Logger
	now     func() time.Time
}

func NewUserService(users repository.UserRepository, storage AvatarStorage, logger *slog.Logger) *UserService {
	return &UserService{
		users:   users,
		storage: storage,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.FindByID(id)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	fields := map[string]any{"updated_at": s.now()}
	if input.Bio != nil {
		if len(*input.Bio) > maxBioLength {
			return nil, validationError("bio must be at most 500 characters")
		}
		fields["bio"] = *input.Bio
	}
	if err := s.users.UpdateProfile(userID, fields); err != nil {
		return nil, err
	}
	return s.users.FindByID(userID)
}

// UploadAvatar stores the new image, points the profile at it, and then
// removes the previous object. The removal is best effort: a stale object
// in the bucket is preferable to a broken profile image.
func (s *UserService) UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileSize int64) (*domain.User, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}

	objectKey, err := s.storage.UploadAvatar(ctx, userID, file, fileSize)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(userID, map[string]any{"image": objectKey, "updated_at": s.now()}); err != nil {
		return nil, err
	}

	if user.Image != nil && *user.Image != "" {
		if err := s.storage.DeleteAvatar(ctx, userID, *user.Image); err != nil {
			s.logger.WarnContext(ctx, "previous avatar cleanup failed", "user_id", userID, "error", err)
		}
	}
	return s.users.FindByID(userID)
}

func (s *UserService) RemoveAvatar(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Image != nil && *user.Image != "" {
		if err := s.storage.DeleteAvatar(ctx, userID, *user.Image); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateProfile(userID, map[string]any{"image": nil, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	return s.users.FindByID(userID)
}

// AvatarURL resolves a stored object key to a presigned URL.
func (s *UserService) AvatarURL(ctx context.Context, user *domain.User) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}
	if user.Image == nil || *user.Image == "" {
		return "", nil
	}
	return s.storage.AvatarURL(ctx, *user.Image)
}
