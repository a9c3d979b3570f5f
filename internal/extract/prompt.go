package extract

import (
	"fmt"
	"strings"

	"github.com/studymill/studymill/internal/domain"
)

const lecturePrompt = `You are an expert teaching assistant extracting knowledge points from lecture material.

Document pages:
%s

Extract every distinct knowledge point. Return a single JSON object:
{"items": [{"type": "knowledge_point", "title": "...", "definition": "...", "formulas": ["..."], "concepts": ["..."], "examples": ["..."], "source_pages": [1]}]}

Rules:
- One item per distinct concept; keep definitions faithful to the source.
- source_pages lists the page numbers the concept appears on.
- Use empty arrays for fields with no content. Return valid JSON only.`

const examPrompt = `You are an expert teaching assistant extracting questions from an exam paper.

Document pages:
%s

Extract every question in order. Return a single JSON object:
{"items": [{"type": "question", "number": 1, "question_type": "choice|fill_blank|short_answer|calculation|proof|other", "content": "...", "options": ["..."], "answer": "...", "explanation": "...", "points": 5, "difficulty": "easy|medium|hard", "source_pages": [1]}]}

Rules:
- number is the question's sequence within the paper, starting at 1.
- options is empty unless the question is multiple choice.
- source_pages lists the page numbers the question appears on. Return valid JSON only.`

const assignmentPrompt = `You are an expert teaching assistant extracting questions from an assignment.

Document pages:
%s

Extract every question, the assignment metadata, and the section grouping. Return a single JSON object:
{"metadata": {"title": "...", "due": "...", "total_points": 100}, "sections": [{"title": "Part A", "items": [0, 1]}], "items": [{"type": "question", "number": 1, "question_type": "choice|fill_blank|short_answer|calculation|proof|other", "content": "...", "options": ["..."], "answer": "...", "explanation": "...", "points": 5, "difficulty": "easy|medium|hard", "source_pages": [1]}]}

Rules:
- sections group items by zero-based index into the items array.
- source_pages lists the page numbers the question appears on. Return valid JSON only.`

// buildPrompt renders the single extraction prompt for a document kind.
// One AI call per document regardless of input size; callers needing finer
// granularity pre-chunk pages before invoking the extractor.
func buildPrompt(kind domain.DocumentKind, pages []Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n%s", p.Number, p.Text)
	}
	body := b.String()

	switch kind {
	case domain.DocumentKindExam:
		return fmt.Sprintf(examPrompt, body)
	case domain.DocumentKindAssignment:
		return fmt.Sprintf(assignmentPrompt, body)
	default:
		return fmt.Sprintf(lecturePrompt, body)
	}
}
