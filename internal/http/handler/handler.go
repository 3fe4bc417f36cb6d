package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/http/middleware"
	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/service"
)

// page is the list envelope shared by feeds, comments and follow listings.
type page struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		response.Error(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		response.Error(w, r, http.StatusBadRequest, "request body is required")
	default:
		response.Error(w, r, http.StatusBadRequest, "invalid request body")
	}
	return false
}

// serviceError translates domain errors into HTTP status codes. Anything
// unrecognized is a 500 with a generic message.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.Error(w, r, http.StatusBadRequest, validationErr.Msg)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken):
		response.Error(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		response.Error(w, r, http.StatusForbidden, "Please verify your email before logging in")
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, service.ErrNotStoryAuthor),
		errors.Is(err, service.ErrNotCommentAuthor):
		response.Error(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSelfFollow),
		errors.Is(err, service.ErrReplyToReply),
		errors.Is(err, service.ErrReplyWrongStory),
		errors.Is(err, repository.ErrClapCapExceeded):
		response.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrStoryNotFound),
		errors.Is(err, repository.ErrCommentNotFound),
		errors.Is(err, repository.ErrFollowNotFound):
		response.Error(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		response.Error(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		response.Error(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func mustUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// viewerID returns the authenticated user id, or nil on anonymous requests.
func viewerID(r *http.Request) *uuid.UUID {
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

func listRequest(r *http.Request) repository.ListRequest {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return repository.ListRequest{Limit: limit, Offset: offset}
}
