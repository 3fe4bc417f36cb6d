package handler

import (
	"net/http"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/service"
)

const maxAvatarUploadBytes = 5 << 20

type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.userSvc.GetByID(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, h.withAvatarURL(r, user))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		Bio *string `json:"bio"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userSvc.UpdateProfile(r.Context(), userID, service.UpdateProfileInput{Bio: req.Bio})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "user.profile.updated", "user_id", userID)
	response.Data(w, r, http.StatusOK, h.withAvatarURL(r, user))
}

// UploadAvatar accepts a multipart form with an "avatar" file field.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()
	if header.Size > maxAvatarUploadBytes {
		response.Error(w, r, http.StatusRequestEntityTooLarge, "avatar must be at most 5MB")
		return
	}

	user, err := h.userSvc.UploadAvatar(r.Context(), userID, file, header.Size)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "user.avatar.uploaded", "user_id", userID)
	response.Data(w, r, http.StatusOK, h.withAvatarURL(r, user))
}

func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	user, err := h.userSvc.RemoveAvatar(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "user.avatar.removed", "user_id", userID)
	response.Data(w, r, http.StatusOK, user.Public())
}

type userView struct {
	domain.PublicUser
	AvatarURL string `json:"avatar_url,omitempty"`
}

// withAvatarURL resolves the stored object key to a presigned URL. A
// resolution failure degrades to the bare projection.
func (h *UserHandler) withAvatarURL(r *http.Request, user *domain.User) userView {
	view := userView{PublicUser: user.Public()}
	url, err := h.userSvc.AvatarURL(r.Context(), user)
	if err == nil {
		view.AvatarURL = url
	}
	return view
}
