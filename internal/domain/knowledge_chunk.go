package domain

import "time"

// KnowledgeChunk represents a persisted, embedded piece of content derived
// from one extracted item. Immutable once persisted except for re-embedding
// (the embedding vector is replaced in place).
type KnowledgeChunk struct {
	ID         string
	DocumentID string
	Content    string
	Metadata   map[string]any
	Embedding  []float32 // nil only transiently before embedding completes
	CreatedAt  time.Time
}

// NewKnowledgeChunk builds the persisted form of an extracted item.
func NewKnowledgeChunk(documentID string, item ExtractedItem, embedding []float32, createdAt time.Time) *KnowledgeChunk {
	return &KnowledgeChunk{
		DocumentID: documentID,
		Content:    item.ContentText(),
		Metadata:   item.Metadata(),
		Embedding:  embedding,
		CreatedAt:  createdAt,
	}
}

// Pages returns the source pages recorded in the chunk metadata, or nil
// when the chunk carries no page information.
func (c *KnowledgeChunk) Pages() []int {
	return pagesFromMetadata(c.Metadata)
}

func pagesFromMetadata(metadata map[string]any) []int {
	raw, ok := metadata["source_pages"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []int:
		return v
	case []any:
		pages := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				pages = append(pages, n)
			case float64:
				pages = append(pages, int(n))
			}
		}
		return pages
	}
	return nil
}
