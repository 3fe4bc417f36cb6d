package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/domain"
)

var ErrCommentNotFound = errors.New("comment not found")

// CommentFilter orders a story's comment listing.
type CommentFilter struct {
	Sort string // "latest" (default), "oldest" or "claps"
	ListRequest
}

type CommentRepository interface {
	Create(comment *domain.Comment) error
	FindByID(id uuid.UUID) (*domain.Comment, error)
	ListByStory(storyID uuid.UUID, filter CommentFilter) (ListResult[domain.Comment], error)
	ListReplies(parentID uuid.UUID, req ListRequest) (ListResult[domain.Comment], error)
	CountRepliesByParents(parentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UpdateContent(id uuid.UUID, content string, now time.Time) error
	Delete(id uuid.UUID) error
	AddClap(commentID, userID uuid.UUID, maxPerUser int, now time.Time) error
}

type GormCommentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &GormCommentRepository{db: db} }

func (r *GormCommentRepository) Create(comment *domain.Comment) error {
	return r.db.Create(comment).Error
}

func (r *GormCommentRepository) FindByID(id uuid.UUID) (*domain.Comment, error) {
	var c domain.Comment
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByStory returns top-level comments only; replies hang off their parent.
func (r *GormCommentRepository) ListByStory(storyID uuid.UUID, filter CommentFilter) (ListResult[domain.Comment], error) {
	req := normalizeListRequest(filter.ListRequest)

	q := r.db.Model(&domain.Comment{}).Where("story_id = ? AND parent_id IS NULL", storyID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult[domain.Comment]{}, err
	}

	switch filter.Sort {
	case "oldest":
		q = q.Order("created_at ASC")
	case "claps":
		q = q.Order("clap_count DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var comments []domain.Comment
	if err := q.Limit(req.Limit).Offset(req.Offset).Find(&comments).Error; err != nil {
		return ListResult[domain.Comment]{}, err
	}
	return ListResult[domain.Comment]{Items: comments, Total: total, HasMore: hasMore(total, req, len(comments))}, nil
}

func (r *GormCommentRepository) ListReplies(parentID uuid.UUID, req ListRequest) (ListResult[domain.Comment], error) {
	req = normalizeListRequest(req)

	q := r.db.Model(&domain.Comment{}).Where("parent_id = ?", parentID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult[domain.Comment]{}, err
	}

	var comments []domain.Comment
	if err := q.Order("created_at ASC").Limit(req.Limit).Offset(req.Offset).Find(&comments).Error; err != nil {
		return ListResult[domain.Comment]{}, err
	}
	return ListResult[domain.Comment]{Items: comments, Total: total, HasMore: hasMore(total, req, len(comments))}, nil
}

func (r *GormCommentRepository) CountRepliesByParents(parentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	type replyCount struct {
		ParentID uuid.UUID
		Count    int64
	}
	var rows []replyCount
	err := r.db.Model(&domain.Comment{}).
		Select("parent_id AS parent_id, COUNT(*) AS count").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ParentID] = row.Count
	}
	return out, nil
}

func (r *GormCommentRepository) UpdateContent(id uuid.UUID, content string, now time.Time) error {
	res := r.db.Model(&domain.Comment{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *GormCommentRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", id).Delete(&domain.CommentClap{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCommentNotFound
		}
		return nil
	})
}

func (r *GormCommentRepository) AddClap(commentID, userID uuid.UUID, maxPerUser int, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Comment{}).Where("id = ?", commentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrCommentNotFound
		}

		var clap domain.CommentClap
		err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).First(&clap).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			clap = domain.CommentClap{CommentID: commentID, UserID: userID, Claps: 1, UpdatedAt: now}
			if err := tx.Create(&clap).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if clap.Claps >= maxPerUser {
				return ErrClapCapExceeded
			}
			res := tx.Model(&domain.CommentClap{}).
				Where("comment_id = ? AND user_id = ?", commentID, userID).
				Updates(map[string]any{"claps": gorm.Expr("claps + 1"), "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
		}

		return tx.Model(&domain.Comment{}).Where("id = ?", commentID).
			Update("clap_count", gorm.Expr("clap_count + 1")).Error
	})
}
