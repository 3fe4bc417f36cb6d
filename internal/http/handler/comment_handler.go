package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/service"
)

type CommentHandler struct {
	commentSvc *service.CommentService
}

func NewCommentHandler(commentSvc *service.CommentService) *CommentHandler {
	return &CommentHandler{commentSvc: commentSvc}
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	storyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content  string     `json:"content"`
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.commentSvc.Add(r.Context(), userID, storyID, req.ParentID, req.Content)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "comment.created", "comment_id", comment.ID, "story_id", storyID)
	response.Data(w, r, http.StatusCreated, comment)
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.commentSvc.Get(r.Context(), commentID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, view)
}

func (h *CommentHandler) ListByStory(w http.ResponseWriter, r *http.Request) {
	storyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	views, total, hasMore, err := h.commentSvc.ListByStory(r.Context(), storyID, repository.CommentFilter{
		Sort:        r.URL.Query().Get("sort"),
		ListRequest: listRequest(r),
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: views, Total: total, HasMore: hasMore})
}

func (h *CommentHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	views, total, hasMore, err := h.commentSvc.ListReplies(r.Context(), parentID, listRequest(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: views, Total: total, HasMore: hasMore})
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.commentSvc.Update(r.Context(), userID, commentID, req.Content)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.commentSvc.Delete(r.Context(), userID, commentID); err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "comment.deleted", "comment_id", commentID)
	response.Message(w, r, http.StatusOK, "Comment deleted")
}

func (h *CommentHandler) Clap(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	comment, err := h.commentSvc.Clap(r.Context(), userID, commentID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, map[string]any{"clap_count": comment.ClapCount})
}
