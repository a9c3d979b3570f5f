// Package extract turns page-indexed document text into typed extracted
// items through one JSON-mode AI call per document.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/pipeline"
	"github.com/studymill/studymill/internal/schema"
)

// Page is one page of extracted document text.
type Page struct {
	Number int
	Text   string
}

// JSONGenerator defines the single AI content-generation call the
// extractor consumes.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Result carries extracted items together with non-fatal diagnostics.
// Partial-failure tolerance is a first-class outcome here, not an
// exception path.
type Result struct {
	Items    []domain.ExtractedItem
	Sections []schema.Section
	Meta     map[string]any
	Warnings []string
}

// Extractor builds one prompt from page-indexed text, makes exactly one AI
// call, and validates the response into typed items.
type Extractor struct {
	ai JSONGenerator
}

// NewExtractor creates a new Extractor instance.
func NewExtractor(ai JSONGenerator) *Extractor {
	return &Extractor{ai: ai}
}

// Extract runs the single extraction call for a document. An
// already-cancelled signal short-circuits to an empty result without
// calling the AI service. AI call failure is the only error path; every
// response-shape problem degrades to warnings.
func (e *Extractor) Extract(ctx context.Context, kind domain.DocumentKind, pages []Page, cancel *pipeline.Canceller) (Result, error) {
	if cancel.Cancelled() {
		return emptyResult(), nil
	}

	prompt := buildPrompt(kind, pages)
	text, err := e.ai.GenerateJSON(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("extraction call failed: %w", err)
	}

	if text == "" {
		result := emptyResult()
		result.Warnings = append(result.Warnings, "AI service returned an empty response")
		return result, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		// Response length only; never the raw content.
		result := emptyResult()
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("AI response is not valid JSON (%d bytes)", len(text)))
		return result, nil
	}

	items, warnings := schema.ValidateItems(payload["items"])
	sections := schema.ParseSections(payload["sections"], len(items))

	result := Result{
		Items:    items,
		Sections: schema.EnsureSections(sections, len(items)),
		Warnings: warnings,
	}
	if meta, ok := payload["metadata"].(map[string]any); ok {
		result.Meta = meta
	}
	return result, nil
}

func emptyResult() Result {
	return Result{
		Items:    []domain.ExtractedItem{},
		Sections: schema.EnsureSections(nil, 0),
	}
}
