package handler

import (
	"net/http"

	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/service"
)

type TagHandler struct {
	tagSvc *service.TagService
}

func NewTagHandler(tagSvc *service.TagService) *TagHandler {
	return &TagHandler{tagSvc: tagSvc}
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagSvc.List(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, tags)
}
