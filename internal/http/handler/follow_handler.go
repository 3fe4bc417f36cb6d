package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/service"
)

type FollowHandler struct {
	followSvc *service.FollowService
}

func NewFollowHandler(followSvc *service.FollowService) *FollowHandler {
	return &FollowHandler{followSvc: followSvc}
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.followSvc.Follow(r.Context(), userID, targetID); err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "follow.created", "follower_id", userID, "target_id", targetID)
	h.relationship(w, r, targetID)
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.followSvc.Unfollow(r.Context(), userID, targetID); err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "follow.removed", "follower_id", userID, "target_id", targetID)
	h.relationship(w, r, targetID)
}

// relationship reports the post-mutation state the client cares about:
// whether the caller now follows the target and the target's new count.
func (h *FollowHandler) relationship(w http.ResponseWriter, r *http.Request, targetID uuid.UUID) {
	profile, err := h.followSvc.Profile(r.Context(), targetID, viewerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	following := false
	if profile.Following != nil {
		following = *profile.Following
	}
	response.Data(w, r, http.StatusOK, map[string]any{
		"following":       following,
		"followers_count": profile.FollowerCount,
	})
}

func (h *FollowHandler) Profile(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	profile, err := h.followSvc.Profile(r.Context(), targetID, viewerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, profile)
}

func (h *FollowHandler) IsFollowing(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	following, err := h.followSvc.IsFollowing(r.Context(), userID, targetID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, map[string]bool{"is_following": following})
}

func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entries, total, hasMore, err := h.followSvc.Followers(r.Context(), targetID, listRequest(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: entries, Total: total, HasMore: hasMore})
}

func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entries, total, hasMore, err := h.followSvc.Following(r.Context(), targetID, listRequest(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, page{Items: entries, Total: total, HasMore: hasMore})
}
