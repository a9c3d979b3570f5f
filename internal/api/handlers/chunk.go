package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/studymill/studymill/internal/api"
)

// ChunkStore edits persisted knowledge chunks.
type ChunkStore interface {
	UpdateContent(ctx context.Context, id, content string) error
}

type ChunkHandler struct {
	store ChunkStore
}

func NewChunkHandler(store ChunkStore) *ChunkHandler {
	return &ChunkHandler{store: store}
}

type UpdateChunkRequest struct {
	Content string `json:"content"`
}

// Update handles PUT /chunks/{id}: replace a chunk's content and queue a
// re-embedding job. The stored vector is replaced asynchronously by the
// embedding worker.
func (h *ChunkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.store.UpdateContent(r.Context(), id, content); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": "reembed_queued",
	})
}
