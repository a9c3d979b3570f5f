package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/studymill/studymill/internal/api"
	"github.com/studymill/studymill/internal/retrieval"
)

// ContextBuilder assembles grounding context for a query.
type ContextBuilder interface {
	BuildContext(ctx context.Context, query string, filter retrieval.SearchFilter, limit int) string
}

type ContextHandler struct {
	builder ContextBuilder
}

func NewContextHandler(builder ContextBuilder) *ContextHandler {
	return &ContextHandler{builder: builder}
}

type ContextRequest struct {
	Query      string `json:"query"`
	CourseID   string `json:"course_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

// Build handles POST /context. The response context is empty when nothing
// relevant was found or retrieval was unavailable; callers proceed
// ungrounded either way.
func (h *ContextHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.builder.BuildContext(r.Context(), req.Query, retrieval.SearchFilter{
		CourseID:   req.CourseID,
		DocumentID: req.DocumentID,
	}, req.Limit)

	api.Success(w, http.StatusOK, ContextResponse{Context: result})
}
