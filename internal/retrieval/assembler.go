// Package retrieval assembles grounding context for generation from the
// knowledge chunk store.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/telemetry"
)

const (
	// DefaultLimit is the number of chunks assembled when the caller does
	// not specify one.
	DefaultLimit = 5

	// DefaultSimilarityThreshold drops semantic candidates below this
	// cosine similarity before fusion.
	DefaultSimilarityThreshold = 0.3

	// rrfK is the reciprocal-rank-fusion constant for merging vector and
	// keyword rankings.
	rrfK = 60

	separator = "\n\n---\n\n"
)

// EmbeddingClient generates the query embedding.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchFilter scopes a retrieval call.
type SearchFilter struct {
	CourseID   string
	DocumentID string
}

// SearchStore runs the fused vector + keyword search over knowledge chunks.
type SearchStore interface {
	HybridSearch(ctx context.Context, embedding []float32, query string, filter SearchFilter, threshold float64, limit, rrfK int) ([]*domain.SearchHit, error)
}

// Assembler turns a free-text query into a citation-annotated context
// string. Retrieval is a soft dependency of generation: every failure
// degrades to an empty context instead of propagating.
type Assembler struct {
	embedding EmbeddingClient
	store     SearchStore
	threshold float64
}

// NewAssembler creates an Assembler with the default similarity threshold.
func NewAssembler(embedding EmbeddingClient, store SearchStore) *Assembler {
	return &Assembler{
		embedding: embedding,
		store:     store,
		threshold: DefaultSimilarityThreshold,
	}
}

// BuildContext retrieves up to limit chunks relevant to query within the
// filter scope and renders them as a single grounding string. It never
// returns an error: an empty string means "no grounding available" and the
// caller proceeds without it.
func (a *Assembler) BuildContext(ctx context.Context, query string, filter SearchFilter, limit int) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, span := telemetry.StartSpan(ctx, "Assembler.BuildContext", telemetry.SpanAttributes{
		CourseID:   filter.CourseID,
		DocumentID: filter.DocumentID,
		Operation:  "build_context",
	})
	defer span.End()

	embedding, err := a.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		log.Printf("retrieval: query embedding failed, returning empty context: %v", err)
		return ""
	}
	if len(embedding) == 0 {
		log.Printf("retrieval: query embedding unavailable, returning empty context")
		return ""
	}

	hits, err := a.store.HybridSearch(ctx, embedding, query, filter, a.threshold, limit, rrfK)
	if err != nil {
		span.SetError(err)
		log.Printf("retrieval: hybrid search failed, returning empty context: %v", err)
		return ""
	}

	return renderContext(hits)
}

// renderContext joins chunk contents with a visual separator, appending a
// page citation when the chunk carries source pages.
func renderContext(hits []*domain.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h == nil {
			continue
		}
		content := strings.TrimSpace(h.Content)
		if content == "" {
			continue
		}
		if cite := formatCitation(h.Pages()); cite != "" {
			content += " " + cite
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, separator)
}

func formatCitation(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	labels := make([]string, len(pages))
	for i, p := range pages {
		labels[i] = fmt.Sprintf("p%d", p)
	}
	return "(" + strings.Join(labels, ", ") + ")"
}
