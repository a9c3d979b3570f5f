package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/studymill/studymill/internal/domain"
)

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) UpdateContent(ctx context.Context, id, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func chunkRouter(store ChunkStore) http.Handler {
	r := chi.NewRouter()
	r.Put("/chunks/{id}", NewChunkHandler(store).Update)
	return r
}

func TestChunkHandler_Update(t *testing.T) {
	store := new(MockChunkStore)
	store.On("UpdateContent", mock.Anything, "chunk-1", "Entropy, restated.").Return(nil)

	body := bytes.NewBufferString(`{"content":"Entropy, restated."}`)
	req := httptest.NewRequest(http.MethodPut, "/chunks/chunk-1", body)
	w := httptest.NewRecorder()

	chunkRouter(store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"reembed_queued"`)
	assert.Contains(t, w.Body.String(), `"id":"chunk-1"`)
	store.AssertExpectations(t)
}

func TestChunkHandler_Update_TrimsContent(t *testing.T) {
	store := new(MockChunkStore)
	store.On("UpdateContent", mock.Anything, "chunk-1", "trimmed").Return(nil)

	body := bytes.NewBufferString(`{"content":"  trimmed  "}`)
	req := httptest.NewRequest(http.MethodPut, "/chunks/chunk-1", body)
	w := httptest.NewRecorder()

	chunkRouter(store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	store.AssertExpectations(t)
}

func TestChunkHandler_Update_EmptyContent(t *testing.T) {
	store := new(MockChunkStore)

	body := bytes.NewBufferString(`{"content":"   "}`)
	req := httptest.NewRequest(http.MethodPut, "/chunks/chunk-1", body)
	w := httptest.NewRecorder()

	chunkRouter(store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestChunkHandler_Update_InvalidBody(t *testing.T) {
	store := new(MockChunkStore)

	body := bytes.NewBufferString(`{not json`)
	req := httptest.NewRequest(http.MethodPut, "/chunks/chunk-1", body)
	w := httptest.NewRecorder()

	chunkRouter(store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChunkHandler_Update_NotFound(t *testing.T) {
	store := new(MockChunkStore)
	store.On("UpdateContent", mock.Anything, "missing", "content").Return(domain.ErrChunkNotFound)

	body := bytes.NewBufferString(`{"content":"content"}`)
	req := httptest.NewRequest(http.MethodPut, "/chunks/missing", body)
	w := httptest.NewRecorder()

	chunkRouter(store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
