package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
)

const maxClapsPerUser = 50

var (
	ErrNotStoryAuthor = errors.New("only the author can modify this story")
	ErrStoryNotPublic = errors.New("story is not published")
)

type CreateStoryInput struct {
	Title    string
	Subtitle *string
	Content  json.RawMessage
	Tags     []string
	Publish  bool
}

type UpdateStoryInput struct {
	Title    *string
	Subtitle *string
	Content  json.RawMessage
	Tags     []string
	Publish  *bool
}

type StoryService struct {
	stories  repository.StoryRepository
	follows  repository.FollowRepository
	users    repository.UserRepository
	tagCache *TagService
	now      func() time.Time
}

func NewStoryService(stories repository.StoryRepository, follows repository.FollowRepository, users repository.UserRepository, tagCache *TagService) *StoryService {
	return &StoryService{
		stories:  stories,
		follows:  follows,
		users:    users,
		tagCache: tagCache,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Creating or retagging a story can introduce tags the cached global
// list has not seen yet.
func (s *StoryService) invalidateTags(ctx context.Context, tags []string) {
	if s.tagCache == nil || len(tags) == 0 {
		return
	}
	s.tagCache.Invalidate(ctx)
}

func (s *StoryService) Create(ctx context.Context, authorID uuid.UUID, input CreateStoryInput) (*domain.Story, error) {
	if err := validateStoryTitle(input.Title); err != nil {
		return nil, err
	}
	if len(input.Content) == 0 {
		return nil, validationError("content is required")
	}

	storySlug, err := s.uniqueSlug(input.Title)
	if err != nil {
		return nil, err
	}
	story := &domain.Story{
		AuthorID: authorID,
		Title:    input.Title,
		Subtitle: input.Subtitle,
		Content:  []byte(input.Content),
		Slug:     storySlug,
		Status:   domain.StoryStatusDraft,
	}
	if input.Publish {
		now := s.now()
		story.Status = domain.StoryStatusPublished
		story.PublishedAt = &now
	}
	if err := s.stories.Create(story, input.Tags); err != nil {
		// Slug collisions between the check and the insert fall through to
		// the unique index; retry with a fresh suffix once.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			story.Slug = fmt.Sprintf("%s-%s", storySlug, uuid.NewString()[:8])
			if err := s.stories.Create(story, input.Tags); err != nil {
				return nil, err
			}
			s.invalidateTags(ctx, input.Tags)
			return s.stories.FindByID(story.ID)
		}
		return nil, err
	}
	s.invalidateTags(ctx, input.Tags)
	return s.stories.FindByID(story.ID)
}

// GetBySlug returns a story for public consumption. Drafts stay hidden
// from everyone except their author.
func (s *StoryService) GetBySlug(ctx context.Context, storySlug string, viewerID *uuid.UUID) (*domain.Story, error) {
	story, err := s.stories.FindBySlug(storySlug)
	if err != nil {
		return nil, err
	}
	if story.Status != domain.StoryStatusPublished {
		if viewerID == nil || *viewerID != story.AuthorID {
			return nil, repository.ErrStoryNotFound
		}
	}
	return story, nil
}

func (s *StoryService) GetByID(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*domain.Story, error) {
	story, err := s.stories.FindByID(id)
	if err != nil {
		return nil, err
	}
	if story.Status != domain.StoryStatusPublished {
		if viewerID == nil || *viewerID != story.AuthorID {
			return nil, repository.ErrStoryNotFound
		}
	}
	return story, nil
}

func (s *StoryService) Update(ctx context.Context, userID, storyID uuid.UUID, input UpdateStoryInput) (*domain.Story, error) {
	story, err := s.stories.FindByID(storyID)
	if err != nil {
		return nil, err
	}
	if story.AuthorID != userID {
		return nil, ErrNotStoryAuthor
	}

	now := s.now()
	fields := map[string]any{"updated_at": now}
	if input.Title != nil {
		if err := validateStoryTitle(*input.Title); err != nil {
			return nil, err
		}
		fields["title"] = *input.Title
	}
	if input.Subtitle != nil {
		fields["subtitle"] = *input.Subtitle
	}
	if len(input.Content) > 0 {
		fields["content"] = []byte(input.Content)
	}
	if input.Publish != nil {
		if *input.Publish {
			fields["status"] = domain.StoryStatusPublished
			// First publication stamps published_at; republishing keeps it.
			if story.PublishedAt == nil {
				fields["published_at"] = now
			}
		} else {
			fields["status"] = domain.StoryStatusDraft
		}
	}

	if err := s.stories.Update(storyID, fields); err != nil {
		return nil, err
	}
	if input.Tags != nil {
		if err := s.stories.ReplaceTags(storyID, input.Tags); err != nil {
			return nil, err
		}
		s.invalidateTags(ctx, input.Tags)
	}
	return s.stories.FindByID(storyID)
}

func (s *StoryService) Delete(ctx context.Context, userID, storyID uuid.UUID) error {
	story, err := s.stories.FindByID(storyID)
	if err != nil {
		return err
	}
	if story.AuthorID != userID {
		return ErrNotStoryAuthor
	}
	return s.stories.Delete(storyID)
}

func (s *StoryService) Feed(ctx context.Context, filter repository.FeedFilter) (repository.ListResult[domain.Story], error) {
	return s.stories.Feed(filter)
}

// FollowingFeed lists published stories by the authors the user follows.
func (s *StoryService) FollowingFeed(ctx context.Context, userID uuid.UUID, req repository.ListRequest) (repository.ListResult[domain.Story], error) {
	authorIDs, err := s.follows.FollowingIDs(userID)
	if err != nil {
		return repository.ListResult[domain.Story]{}, err
	}
	return s.stories.FeedByAuthors(authorIDs, req)
}

// Clap adds one clap from the user, capped at 50 per reader per story.
func (s *StoryService) Clap(ctx context.Context, userID, storyID uuid.UUID) (*domain.Story, error) {
	if err := s.stories.AddClap(storyID, userID, maxClapsPerUser, s.now()); err != nil {
		if errors.Is(err, repository.ErrClapCapExceeded) {
			observability.RecordClapEvent(ctx, "story", "capped")
		}
		return nil, err
	}
	observability.RecordClapEvent(ctx, "story", "success")
	return s.stories.FindByID(storyID)
}

// Authors resolves the public projections for a page of stories.
func (s *StoryService) Authors(ctx context.Context, stories []domain.Story) (map[uuid.UUID]domain.PublicUser, error) {
	ids := make([]uuid.UUID, 0, len(stories))
	seen := make(map[uuid.UUID]struct{}, len(stories))
	for _, story := range stories {
		if _, ok := seen[story.AuthorID]; ok {
			continue
		}
		seen[story.AuthorID] = struct{}{}
		ids = append(ids, story.AuthorID)
	}
	users, err := s.users.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.PublicUser, len(users))
	for id, u := range users {
		out[id] = u.Public()
	}
	return out, nil
}

func (s *StoryService) uniqueSlug(title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "story"
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.stories.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		if i > 10 {
			return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func validateStoryTitle(title string) error {
	if len(title) < 1 || len(title) > 255 {
		return validationError("title must be between 1 and 255 characters")
	}
	return nil
}
