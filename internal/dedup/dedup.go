// Package dedup clusters near-duplicate extracted items by embedding
// cosine similarity and merges each cluster into a single record.
package dedup

import (
	"context"
	"fmt"
	"math"

	"github.com/studymill/studymill/internal/domain"
)

// DefaultThreshold is the cosine similarity at or above which two items
// are considered duplicates.
const DefaultThreshold = 0.92

// EmbeddingClient defines the batched embedding call the deduplicator
// consumes. All item texts go out in a single call.
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Deduplicator merges semantically equivalent knowledge points.
type Deduplicator struct {
	client    EmbeddingClient
	threshold float64
}

// NewDeduplicator creates a Deduplicator with the default threshold.
func NewDeduplicator(client EmbeddingClient) *Deduplicator {
	return NewDeduplicatorWithThreshold(client, DefaultThreshold)
}

// NewDeduplicatorWithThreshold creates a Deduplicator with an explicit
// similarity threshold.
func NewDeduplicatorWithThreshold(client EmbeddingClient, threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{client: client, threshold: threshold}
}

// Deduplicate merges near-duplicate items and returns the survivors in
// original order. Lists of zero or one element are returned unchanged with
// zero embedding calls. Single-pass greedy clustering: O(n²) comparisons
// by design, acceptable for per-document item counts in the tens.
func (d *Deduplicator) Deduplicate(ctx context.Context, items []domain.ExtractedItem) ([]domain.ExtractedItem, error) {
	if len(items) <= 1 {
		return items, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = dedupText(item)
	}

	vectors, err := d.client.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("dedup embedding failed: %w", err)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("dedup embedding returned %d vectors for %d items", len(vectors), len(items))
	}

	merged := make([]bool, len(items))
	out := make([]domain.ExtractedItem, 0, len(items))
	for i := range items {
		if merged[i] {
			continue
		}
		primary := items[i]
		for j := i + 1; j < len(items); j++ {
			if merged[j] {
				continue
			}
			if CosineSimilarity(vectors[i], vectors[j]) >= d.threshold {
				primary = mergeItems(primary, items[j])
				merged[j] = true
			}
		}
		out = append(out, primary)
	}
	return out, nil
}

// dedupText is the text compared for similarity: title plus definition for
// knowledge points, content for questions.
func dedupText(item domain.ExtractedItem) string {
	switch item.Type {
	case domain.ItemTypeKnowledgePoint:
		return item.Point.Title + "\n" + item.Point.Definition
	case domain.ItemTypeQuestion:
		return item.Question.Content
	}
	return ""
}

// mergeItems merges b into a. The item with the longer definition becomes
// primary; list-valued fields are unioned and source pages sorted.
func mergeItems(a, b domain.ExtractedItem) domain.ExtractedItem {
	if a.Type != domain.ItemTypeKnowledgePoint || b.Type != domain.ItemTypeKnowledgePoint {
		// Questions are never merged; sequence numbers make them distinct.
		return a
	}

	primary, secondary := a.Point, b.Point
	if len(secondary.Definition) > len(primary.Definition) {
		primary, secondary = secondary, primary
	}

	merged := &domain.KnowledgePoint{
		Title:       primary.Title,
		Definition:  primary.Definition,
		Formulas:    unionStrings(primary.Formulas, secondary.Formulas),
		Concepts:    unionStrings(primary.Concepts, secondary.Concepts),
		Examples:    unionStrings(primary.Examples, secondary.Examples),
		SourcePages: domain.NormalizePages(append(append([]int{}, primary.SourcePages...), secondary.SourcePages...)),
	}
	return domain.NewKnowledgePointItem(merged)
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CosineSimilarity computes the cosine of the angle between two vectors:
// dot product divided by the product of magnitudes. Mismatched or
// zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
