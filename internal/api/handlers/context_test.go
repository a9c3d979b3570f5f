package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/studymill/studymill/internal/retrieval"
)

type MockContextBuilder struct {
	mock.Mock
}

func (m *MockContextBuilder) BuildContext(ctx context.Context, query string, filter retrieval.SearchFilter, limit int) string {
	args := m.Called(ctx, query, filter, limit)
	return args.String(0)
}

func TestContextHandler_Build(t *testing.T) {
	mockBuilder := new(MockContextBuilder)
	handler := NewContextHandler(mockBuilder)

	mockBuilder.On("BuildContext", mock.Anything, "what is bayes theorem",
		retrieval.SearchFilter{CourseID: "course-1"}, 3).
		Return("Bayes theorem. (p3)")

	body := bytes.NewBufferString(`{"query":"what is bayes theorem","course_id":"course-1","limit":3}`)
	req := httptest.NewRequest(http.MethodPost, "/context", body)
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"context":"Bayes theorem. (p3)"`)
	mockBuilder.AssertExpectations(t)
}

func TestContextHandler_Build_EmptyContext(t *testing.T) {
	mockBuilder := new(MockContextBuilder)
	handler := NewContextHandler(mockBuilder)

	mockBuilder.On("BuildContext", mock.Anything, "anything", retrieval.SearchFilter{}, 0).Return("")

	body := bytes.NewBufferString(`{"query":"anything"}`)
	req := httptest.NewRequest(http.MethodPost, "/context", body)
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"context":""`)
}

func TestContextHandler_Build_MissingQuery(t *testing.T) {
	handler := NewContextHandler(new(MockContextBuilder))

	body := bytes.NewBufferString(`{"course_id":"course-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/context", body)
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContextHandler_Build_BadJSON(t *testing.T) {
	handler := NewContextHandler(new(MockContextBuilder))

	body := bytes.NewBufferString(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/context", body)
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
