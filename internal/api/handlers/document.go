package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/studymill/studymill/internal/api"
	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/ingest"
	"github.com/studymill/studymill/internal/pagination"
	"github.com/studymill/studymill/internal/pipeline"
	"github.com/studymill/studymill/internal/repository"
)

// maxUploadBytes caps the in-memory portion of multipart parsing; the
// request body itself is capped by the MaxBodyBytes middleware.
const maxUploadBytes = 32 << 20

// Ingestor runs the ingestion pipeline for one upload.
type Ingestor interface {
	Ingest(ctx context.Context, input ingest.Input, sink ingest.EventSink, cancel *pipeline.Canceller) (*domain.Document, error)
}

// DocumentStore reads and deletes persisted documents.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCourse(ctx context.Context, courseID string, cursor *pagination.Cursor, limit int) (*repository.DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	ingestor Ingestor
	store    DocumentStore
}

func NewDocumentHandler(ingestor Ingestor, store DocumentStore) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, store: store}
}

type DocumentResponse struct {
	ID            string `json:"id"`
	CourseID      string `json:"course_id"`
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Cursor    string              `json:"cursor,omitempty"`
	HasMore   bool                `json:"has_more"`
}

func toDocumentResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:            d.ID,
		CourseID:      d.CourseID,
		Title:         d.Title,
		Kind:          string(d.Kind),
		Status:        string(d.Status),
		StatusMessage: d.StatusMessage,
		CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// sseSink forwards pipeline events onto an SSE stream. Send failures are
// logged and swallowed: a gone client must not abort the pipeline, the
// cancel signal handles that.
type sseSink struct {
	sse *api.SSEWriter
}

func (s *sseSink) Emit(e ingest.Event) {
	if err := s.sse.Send(string(e.Name), e.Data); err != nil {
		log.Printf("failed to send %s event: %v", e.Name, err)
	}
}

// Upload handles POST /documents: a multipart upload answered with a live
// SSE stream of ingestion progress.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	courseID := strings.TrimSpace(r.FormValue("course_id"))
	if courseID == "" {
		api.HandleError(w, domain.ErrMissingCourseID)
		return
	}

	kind := domain.DocumentKind(strings.TrimSpace(r.FormValue("kind")))
	switch kind {
	case domain.DocumentKindLecture, domain.DocumentKindExam, domain.DocumentKindAssignment:
	default:
		api.HandleError(w, domain.ErrInvalidDocumentKind)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.ErrInvalidUpload)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil || len(content) == 0 {
		api.HandleError(w, domain.ErrInvalidUpload)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	sse, err := api.NewSSEWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The pipeline keeps its own lifetime: a dropped connection trips the
	// cooperative cancel signal, and the pipeline flushes pending work
	// before stopping instead of being killed mid-write.
	cancel := pipeline.NewCanceller()
	cancel.LinkContext(r.Context())

	_, err = h.ingestor.Ingest(context.WithoutCancel(r.Context()), ingest.Input{
		CourseID: courseID,
		Title:    title,
		Kind:     kind,
		Content:  content,
	}, &sseSink{sse: sse}, cancel)
	if err != nil {
		if sendErr := sse.Send(string(ingest.EventError), ingest.ErrorData{
			Message: err.Error(),
			Code:    domain.ErrCodeInternalError,
		}); sendErr != nil {
			log.Printf("failed to send error event: %v", sendErr)
		}
	}
}

// Get handles GET /documents/{id}, the status polling endpoint.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toDocumentResponse(doc))
}

// List handles GET /documents?course_id=...&cursor=...&limit=...
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
	if courseID == "" {
		api.HandleError(w, domain.ErrMissingCourseID)
		return
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	page, err := h.store.ListByCourse(r.Context(), courseID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := DocumentListResponse{
		Documents: make([]*DocumentResponse, 0, len(page.Items)),
		Cursor:    page.NextCursor,
		HasMore:   page.HasMore,
	}
	for _, d := range page.Items {
		resp.Documents = append(resp.Documents, toDocumentResponse(d))
	}

	api.Success(w, http.StatusOK, resp)
}

// Delete handles DELETE /documents/{id}; chunks go with the document.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
