// Package review scores extracted items for relevance and quality in
// fixed-size AI batches and filters low-quality extractions.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/pipeline"
)

const (
	// DefaultBatchSize is the number of items scored per AI call.
	DefaultBatchSize = 10
	// DefaultMinScore is the quality score below which a reviewed item is dropped.
	DefaultMinScore = 4
	// suggestionScoreCeiling: below this score a provided improved
	// definition replaces the original.
	suggestionScoreCeiling = 7
	// previewMaxChars truncates definition previews in the review prompt.
	previewMaxChars = 300
)

// JSONGenerator defines the AI scoring call the reviewer consumes.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Config controls batching and filtering.
type Config struct {
	BatchSize int
	MinScore  int
}

// DefaultConfig provides the default reviewer configuration.
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize, MinScore: DefaultMinScore}
}

// Reviewer runs quality scoring over extracted items.
type Reviewer struct {
	ai  JSONGenerator
	cfg Config
}

// NewReviewer creates a Reviewer with the default configuration.
func NewReviewer(ai JSONGenerator) *Reviewer {
	return NewReviewerWithConfig(ai, DefaultConfig())
}

// NewReviewerWithConfig creates a Reviewer with explicit configuration.
func NewReviewerWithConfig(ai JSONGenerator, cfg Config) *Reviewer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	return &Reviewer{ai: ai, cfg: cfg}
}

// Review scores items in fixed-size batches and returns verdicts keyed by
// the item's absolute index in submission order. The item ordering must
// never be reshuffled between dedup output and review input; the index is
// the only join key, items have no ID until persisted.
//
// Partial-failure contract: a failed batch call stops further batches and
// returns whatever was collected, without retrying and without failing the
// pipeline. Cancellation is observed between batches only.
func (r *Reviewer) Review(ctx context.Context, items []domain.ExtractedItem, progress func(reviewed, total int), cancel *pipeline.Canceller) map[int]domain.QualityVerdict {
	verdicts := make(map[int]domain.QualityVerdict)
	if len(items) == 0 {
		return verdicts
	}

	for offset := 0; offset < len(items); offset += r.cfg.BatchSize {
		if cancel.Cancelled() {
			log.Printf("review cancelled after %d/%d items", offset, len(items))
			return verdicts
		}

		end := offset + r.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}

		prompt := buildReviewPrompt(items[offset:end], offset)
		text, err := r.ai.GenerateJSON(ctx, prompt)
		if err != nil {
			log.Printf("review batch at offset %d failed, keeping %d collected verdicts: %v", offset, len(verdicts), err)
			return verdicts
		}

		parseVerdicts(text, offset, end, verdicts)

		if progress != nil {
			progress(end, len(items))
		}
	}

	return verdicts
}

func buildReviewPrompt(batch []domain.ExtractedItem, offset int) string {
	var b strings.Builder
	b.WriteString("You are reviewing knowledge extracted from course material for relevance and quality.\n\nItems:\n")
	for i, item := range batch {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", offset+i, item.Title(), preview(item))
	}
	b.WriteString(`
Score each item. Return a single JSON object:
{"verdicts": [{"index": 0, "relevant": true, "score": 7, "issues": ["..."], "suggestion": ""}]}

Rules:
- index is the bracketed number shown above.
- relevant is false for content that is not course knowledge (headers, administrivia, noise).
- score is an integer 1-10 for extraction quality.
- suggestion optionally holds an improved definition when the original is weak. Return valid JSON only.`)
	return b.String()
}

func preview(item domain.ExtractedItem) string {
	var text string
	switch item.Type {
	case domain.ItemTypeKnowledgePoint:
		text = item.Point.Definition
	case domain.ItemTypeQuestion:
		text = item.Question.Content
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > previewMaxChars {
		return text[:previewMaxChars-3] + "..."
	}
	return text
}

// parseVerdicts parses each returned verdict independently; a malformed
// verdict is dropped, not fatal to the batch.
func parseVerdicts(text string, offset, end int, verdicts map[int]domain.QualityVerdict) {
	var payload struct {
		Verdicts []json.RawMessage `json:"verdicts"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		log.Printf("review batch at offset %d returned unparseable JSON (%d bytes)", offset, len(text))
		return
	}

	for _, raw := range payload.Verdicts {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		idxVal, ok := obj["index"].(float64)
		if !ok {
			continue
		}
		idx := int(idxVal)
		if idx < offset || idx >= end {
			continue
		}
		scoreVal, ok := obj["score"].(float64)
		if !ok || !domain.IsValidScore(int(scoreVal)) {
			continue
		}

		verdict := domain.QualityVerdict{
			Relevant: true,
			Score:    int(scoreVal),
		}
		if rel, ok := obj["relevant"].(bool); ok {
			verdict.Relevant = rel
		}
		if sugg, ok := obj["suggestion"].(string); ok {
			verdict.Suggestion = strings.TrimSpace(sugg)
		}
		if issues, ok := obj["issues"].([]any); ok {
			for _, e := range issues {
				if s, ok := e.(string); ok && s != "" {
					verdict.Issues = append(verdict.Issues, s)
				}
			}
		}
		verdicts[idx] = verdict
	}
}

// Filter applies the filtering policy to reviewed items: drop irrelevant
// items, drop items scored below the minimum, substitute the suggested
// improved definition for weak-but-keepable knowledge points. Items with
// no verdict pass through unchanged; absence of review is never rejection.
func (r *Reviewer) Filter(items []domain.ExtractedItem, verdicts map[int]domain.QualityVerdict) []domain.ExtractedItem {
	out := make([]domain.ExtractedItem, 0, len(items))
	for idx, item := range items {
		verdict, reviewed := verdicts[idx]
		if !reviewed {
			out = append(out, item)
			continue
		}
		if !verdict.Relevant {
			continue
		}
		if verdict.Score < r.cfg.MinScore {
			continue
		}
		if verdict.Score < suggestionScoreCeiling && verdict.Suggestion != "" && item.Type == domain.ItemTypeKnowledgePoint {
			improved := *item.Point
			improved.Definition = verdict.Suggestion
			item = domain.NewKnowledgePointItem(&improved)
		}
		out = append(out, item)
	}
	return out
}
