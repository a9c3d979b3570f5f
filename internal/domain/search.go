package domain

// SearchHit is one fused retrieval result over knowledge chunks. Score is
// the reciprocal-rank-fusion score, useful for debugging but not exposed
// to clients.
type SearchHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   map[string]any
	Score      float64
}

// Pages returns the source pages recorded in the hit metadata, or nil when
// the hit carries no page information.
func (h *SearchHit) Pages() []int {
	return pagesFromMetadata(h.Metadata)
}
