package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/service"
)

type StoryHandler struct {
	storySvc *service.StoryService
}

func NewStoryHandler(storySvc *service.StoryService) *StoryHandler {
	return &StoryHandler{storySvc: storySvc}
}

type storyPayload struct {
	Title    string          `json:"title"`
	Subtitle *string         `json:"subtitle"`
	Content  json.RawMessage `json:"content"`
	Tags     []string        `json:"tags"`
	Publish  bool            `json:"publish"`
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req storyPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.storySvc.Create(r.Context(), userID, service.CreateStoryInput{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Content:  req.Content,
		Tags:     req.Tags,
		Publish:  req.Publish,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "story.created", "story_id", story.ID, "slug", story.Slug)
	response.Data(w, r, http.StatusCreated, h.storyView(r, story))
}

func (h *StoryHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.storySvc.Feed(r.Context(), repository.FeedFilter{
		Tag:         q.Get("tag"),
		Sort:        q.Get("sort"),
		ListRequest: listRequest(r),
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	views, err := h.storyViews(r, result.Items)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: views, Total: result.Total, HasMore: result.HasMore})
}

func (h *StoryHandler) FollowingFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	result, err := h.storySvc.FollowingFeed(r.Context(), userID, listRequest(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	views, err := h.storyViews(r, result.Items)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: views, Total: result.Total, HasMore: result.HasMore})
}

func (h *StoryHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	story, err := h.storySvc.GetBySlug(r.Context(), slug, viewerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, h.storyView(r, story))
}

func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	storyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title    *string         `json:"title"`
		Subtitle *string         `json:"subtitle"`
		Content  json.RawMessage `json:"content"`
		Tags     []string        `json:"tags"`
		Publish  *bool           `json:"publish"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.storySvc.Update(r.Context(), userID, storyID, service.UpdateStoryInput{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Content:  req.Content,
		Tags:     req.Tags,
		Publish:  req.Publish,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "story.updated", "story_id", storyID)
	response.Data(w, r, http.StatusOK, h.storyView(r, story))
}

func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	storyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.storySvc.Delete(r.Context(), userID, storyID); err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "story.deleted", "story_id", storyID)
	response.Message(w, r, http.StatusOK, "Story deleted")
}

func (h *StoryHandler) Clap(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	storyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	story, err := h.storySvc.Clap(r.Context(), userID, storyID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, map[string]any{"clap_count": story.ClapCount})
}

type storyView struct {
	domain.Story
	Tags   []string           `json:"tags"`
	Author *domain.PublicUser `json:"author,omitempty"`
}

func (h *StoryHandler) storyView(r *http.Request, story *domain.Story) storyView {
	view := storyView{Story: *story, Tags: tagNames(story.Tags)}
	if authors, err := h.storySvc.Authors(r.Context(), []domain.Story{*story}); err == nil {
		if author, ok := authors[story.AuthorID]; ok {
			view.Author = &author
		}
	}
	return view
}

func (h *StoryHandler) storyViews(r *http.Request, stories []domain.Story) ([]storyView, error) {
	authors, err := h.storySvc.Authors(r.Context(), stories)
	if err != nil {
		return nil, err
	}
	views := make([]storyView, 0, len(stories))
	for _, story := range stories {
		view := storyView{Story: story, Tags: tagNames(story.Tags)}
		if author, ok := authors[story.AuthorID]; ok {
			view.Author = &author
		}
		views = append(views, view)
	}
	return views, nil
}

func tagNames(tags []domain.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}
