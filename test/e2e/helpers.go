//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studymill/studymill/internal/api/handlers"
	"github.com/studymill/studymill/internal/dedup"
	"github.com/studymill/studymill/internal/extract"
	"github.com/studymill/studymill/internal/ingest"
	"github.com/studymill/studymill/internal/openai"
	"github.com/studymill/studymill/internal/pdftext"
	"github.com/studymill/studymill/internal/repository"
	"github.com/studymill/studymill/internal/retrieval"
	"github.com/studymill/studymill/internal/review"
	"github.com/studymill/studymill/internal/server"
	"github.com/studymill/studymill/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	ExtractorS *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv creates a full E2E environment: a pgvector container, a
// stubbed extraction service, a stubbed AI backend, and the real router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	extractorSrv := newStubExtractor()

	aiClient := openai.NewClientWithAPIs(stubEmbeddings{}, stubCompletions{}, openai.DefaultEmbeddingDimensions)

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)

	orchestrator := ingest.NewOrchestrator(
		pdftext.NewClient(extractorSrv.URL),
		extract.NewExtractor(aiClient),
		dedup.NewDeduplicator(aiClient),
		review.NewReviewer(aiClient),
		aiClient,
		docRepo,
		chunkRepo,
	)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(orchestrator, docRepo),
		ChunkHandler:    handlers.NewChunkHandler(chunkRepo),
		ContextHandler:  handlers.NewContextHandler(retrieval.NewAssembler(aiClient, chunkRepo)),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		ExtractorS: extractorSrv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.ExtractorS != nil {
		e.ExtractorS.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// UploadPDF posts a multipart document upload and returns the full SSE body.
func (e *E2ETestEnv) UploadPDF(courseID, title, kind string, content []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("course_id", courseID)
	_ = w.WriteField("title", title)
	_ = w.WriteField("kind", kind)
	fw, err := w.CreateFormFile("file", "upload.pdf")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(content); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/documents", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned %d: %s", resp.StatusCode, body)
	}
	return string(body), nil
}

// DocumentIDFromStream pulls the documentId out of the SSE event stream.
func DocumentIDFromStream(stream string) string {
	const marker = `"documentId":"`
	start := strings.Index(stream, marker)
	if start == -1 {
		return ""
	}
	rest := stream[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end == -1 {
		return ""
	}
	return rest[:end]
}

// GetJSON performs a GET and decodes the data envelope into out.
func (e *E2ETestEnv) GetJSON(path string, out interface{}) (int, error) {
	resp, err := e.HTTPClient.Get(e.Server.URL + path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out == nil || resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, json.Unmarshal(envelope.Data, out)
}

// PostJSON performs a POST with a JSON body and decodes the data envelope.
func (e *E2ETestEnv) PostJSON(path string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out == nil || resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, json.Unmarshal(envelope.Data, out)
}

// PutJSON performs a PUT with a JSON body and returns the status code.
func (e *E2ETestEnv) PutJSON(path string, body interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPut, e.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Delete performs a DELETE request and returns the status code.
func (e *E2ETestEnv) Delete(path string) (int, error) {
	req, err := http.NewRequest(http.MethodDelete, e.Server.URL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// newStubExtractor serves the extraction service contract: POST /extract
// with raw PDF bytes, JSON pages back.
func newStubExtractor() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"pages":[
			{"number":1,"text":"Entropy measures the disorder of a thermodynamic system."},
			{"number":2,"text":"Enthalpy is the total heat content of a system."}
		]}`)
	}))
}

// stubEmbeddings hashes each text onto one axis of a unit vector. Distinct
// texts land on distinct axes, so nothing merges as a near-duplicate and
// retrieval in these tests exercises the keyword leg of hybrid search.
type stubEmbeddings struct{}

func (stubEmbeddings) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New32a()
		_, _ = h.Write([]byte(text))
		vec := make([]float32, openai.DefaultEmbeddingDimensions)
		vec[int(h.Sum32())%openai.DefaultEmbeddingDimensions] = 1
		out[i] = vec
	}
	return out, nil
}

// stubCompletions answers the two JSON-mode prompts the pipeline makes:
// review batches get an empty verdict list (everything passes through), and
// the extraction call gets two knowledge points.
type stubCompletions struct{}

func (stubCompletions) CreateJSONCompletion(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "reviewing knowledge") {
		return `{"verdicts":[]}`, nil
	}
	return `{"items":[
		{"type":"knowledge_point","title":"Entropy","definition":"Entropy measures the disorder of a thermodynamic system.","source_pages":[1]},
		{"type":"knowledge_point","title":"Enthalpy","definition":"Enthalpy is the total heat content of a system.","source_pages":[2]}
	]}`, nil
}
