package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/studymill/studymill/internal/domain"
	"github.com/stretchr/testify/assert"
)

type fakeEmbedding struct {
	vector []float32
	err    error
}

func (f *fakeEmbedding) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeStore struct {
	hits   []*domain.SearchHit
	err    error
	filter SearchFilter
	limit  int
}

func (f *fakeStore) HybridSearch(ctx context.Context, embedding []float32, query string, filter SearchFilter, threshold float64, limit, rrfK int) ([]*domain.SearchHit, error) {
	f.filter = filter
	f.limit = limit
	return f.hits, f.err
}

func newTestAssembler(hits []*domain.SearchHit) (*Assembler, *fakeStore) {
	store := &fakeStore{hits: hits}
	return NewAssembler(&fakeEmbedding{vector: []float32{1, 0, 0}}, store), store
}

func TestBuildContext_FormatsCitations(t *testing.T) {
	a, _ := newTestAssembler([]*domain.SearchHit{
		{Content: "Bayes' theorem relates conditional probabilities.", Metadata: map[string]any{"source_pages": []int{3, 4}}},
		{Content: "The law of total probability.", Metadata: map[string]any{"source_pages": []int{7}}},
	})

	got := a.BuildContext(context.Background(), "bayes", SearchFilter{CourseID: "c1"}, 5)

	want := "Bayes' theorem relates conditional probabilities. (p3, p4)" +
		"\n\n---\n\n" +
		"The law of total probability. (p7)"
	assert.Equal(t, want, got)
}

func TestBuildContext_NoPagesNoCitation(t *testing.T) {
	a, _ := newTestAssembler([]*domain.SearchHit{
		{Content: "Unattributed content."},
	})

	got := a.BuildContext(context.Background(), "query", SearchFilter{}, 5)

	assert.Equal(t, "Unattributed content.", got)
}

func TestBuildContext_EmptyQuery(t *testing.T) {
	a, store := newTestAssembler([]*domain.SearchHit{{Content: "never returned"}})

	assert.Empty(t, a.BuildContext(context.Background(), "   ", SearchFilter{}, 5))
	assert.Zero(t, store.limit)
}

func TestBuildContext_EmbeddingFailureDegrades(t *testing.T) {
	store := &fakeStore{hits: []*domain.SearchHit{{Content: "x"}}}
	a := NewAssembler(&fakeEmbedding{err: errors.New("api down")}, store)

	assert.Empty(t, a.BuildContext(context.Background(), "query", SearchFilter{}, 5))
}

func TestBuildContext_EmptyEmbeddingDegrades(t *testing.T) {
	store := &fakeStore{hits: []*domain.SearchHit{{Content: "x"}}}
	a := NewAssembler(&fakeEmbedding{vector: []float32{}}, store)

	assert.Empty(t, a.BuildContext(context.Background(), "query", SearchFilter{}, 5))
}

func TestBuildContext_StoreFailureDegrades(t *testing.T) {
	a, store := newTestAssembler(nil)
	store.err = errors.New("connection refused")

	assert.Empty(t, a.BuildContext(context.Background(), "query", SearchFilter{}, 5))
}

func TestBuildContext_NoHits(t *testing.T) {
	a, _ := newTestAssembler(nil)

	assert.Empty(t, a.BuildContext(context.Background(), "query", SearchFilter{}, 5))
}

func TestBuildContext_DefaultLimit(t *testing.T) {
	a, store := newTestAssembler(nil)

	a.BuildContext(context.Background(), "query", SearchFilter{CourseID: "c1"}, 0)

	assert.Equal(t, DefaultLimit, store.limit)
	assert.Equal(t, "c1", store.filter.CourseID)
}

func TestBuildContext_SkipsBlankHits(t *testing.T) {
	a, _ := newTestAssembler([]*domain.SearchHit{
		{Content: "  "},
		nil,
		{Content: "Kept.", Metadata: map[string]any{"source_pages": []int{1}}},
	})

	got := a.BuildContext(context.Background(), "query", SearchFilter{}, 5)

	assert.Equal(t, "Kept. (p1)", got)
}
