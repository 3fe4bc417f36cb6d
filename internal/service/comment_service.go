package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
)

const maxCommentLength = 10000

var (
	ErrNotCommentAuthor = errors.New("only the author can modify this comment")
	ErrReplyToReply     = errors.New("replies can only target top-level comments")
	ErrReplyWrongStory  = errors.New("parent comment belongs to a different story")
)

// CommentView joins a comment with its author projection and reply count.
type CommentView struct {
	domain.Comment
	Author     domain.PublicUser `json:"author"`
	ReplyCount int64             `json:"reply_count"`
}

type CommentService struct {
	comments repository.CommentRepository
	stories  repository.StoryRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewCommentService(comments repository.CommentRepository, stories repository.StoryRepository, users repository.UserRepository) *CommentService {
	return &CommentService{
		comments: comments,
		stories:  stories,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Add creates a comment, or a reply when parentID is set. Nesting is one
// level deep: a reply cannot itself be replied to.
func (s *CommentService) Add(ctx context.Context, userID, storyID uuid.UUID, parentID *uuid.UUID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}
	if _, err := s.stories.FindByID(storyID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.comments.FindByID(*parentID)
		if err != nil {
			return nil, err
		}
		if parent.StoryID != storyID {
			return nil, ErrReplyWrongStory
		}
		if parent.ParentID != nil {
			return nil, ErrReplyToReply
		}
	}

	comment := &domain.Comment{
		StoryID:  storyID,
		AuthorID: userID,
		ParentID: parentID,
		Content:  content,
	}
	if err := s.comments.Create(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Get(ctx context.Context, commentID uuid.UUID) (*CommentView, error) {
	comment, err := s.comments.FindByID(commentID)
	if err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, []domain.Comment{*comment}, comment.ParentID == nil)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *CommentService) ListByStory(ctx context.Context, storyID uuid.UUID, filter repository.CommentFilter) ([]CommentView, int64, bool, error) {
	if _, err := s.stories.FindByID(storyID); err != nil {
		return nil, 0, false, err
	}
	page, err := s.comments.ListByStory(storyID, filter)
	if err != nil {
		return nil, 0, false, err
	}
	views, err := s.decorate(ctx, page.Items, true)
	if err != nil {
		return nil, 0, false, err
	}
	return views, page.Total, page.HasMore, nil
}

func (s *CommentService) ListReplies(ctx context.Context, parentID uuid.UUID, req repository.ListRequest) ([]CommentView, int64, bool, error) {
	if _, err := s.comments.FindByID(parentID); err != nil {
		return nil, 0, false, err
	}
	page, err := s.comments.ListReplies(parentID, req)
	if err != nil {
		return nil, 0, false, err
	}
	views, err := s.decorate(ctx, page.Items, false)
	if err != nil {
		return nil, 0, false, err
	}
	return views, page.Total, page.HasMore, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID uuid.UUID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}
	comment, err := s.comments.FindByID(commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, ErrNotCommentAuthor
	}
	if err := s.comments.UpdateContent(commentID, content, s.now()); err != nil {
		return nil, err
	}
	return s.comments.FindByID(commentID)
}

func (s *CommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.comments.FindByID(commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		return ErrNotCommentAuthor
	}
	return s.comments.Delete(commentID)
}

func (s *CommentService) Clap(ctx context.Context, userID, commentID uuid.UUID) (*domain.Comment, error) {
	if err := s.comments.AddClap(commentID, userID, maxClapsPerUser, s.now()); err != nil {
		if errors.Is(err, repository.ErrClapCapExceeded) {
			observability.RecordClapEvent(ctx, "comment", "capped")
		}
		return nil, err
	}
	observability.RecordClapEvent(ctx, "comment", "success")
	return s.comments.FindByID(commentID)
}

func (s *CommentService) decorate(ctx context.Context, comments []domain.Comment, withReplyCounts bool) ([]CommentView, error) {
	authorIDs := make([]uuid.UUID, 0, len(comments))
	commentIDs := make([]uuid.UUID, 0, len(comments))
	seen := make(map[uuid.UUID]struct{}, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
		if _, ok := seen[c.AuthorID]; !ok {
			seen[c.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	authors, err := s.users.FindByIDs(authorIDs)
	if err != nil {
		return nil, err
	}
	replyCounts := map[uuid.UUID]int64{}
	if withReplyCounts {
		replyCounts, err = s.comments.CountRepliesByParents(commentIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		author := authors[c.AuthorID]
		views = append(views, CommentView{
			Comment:    c,
			Author:     author.Public(),
			ReplyCount: replyCounts[c.ID],
		})
	}
	return views, nil
}

func validateCommentContent(content string) error {
	if content == "" {
		return validationError("comment content is required")
	}
	if len(content) > maxCommentLength {
		return validationError("comment content must be at most 10000 characters")
	}
	return nil
}
