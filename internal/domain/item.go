package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ItemType discriminates the two kinds of extracted items.
type ItemType string

const (
	ItemTypeKnowledgePoint ItemType = "knowledge_point"
	ItemTypeQuestion       ItemType = "question"
)

// QuestionType represents the format of an extracted question.
type QuestionType string

const (
	QuestionTypeChoice     QuestionType = "choice"
	QuestionTypeFillBlank  QuestionType = "fill_blank"
	QuestionTypeShortAnswer QuestionType = "short_answer"
	QuestionTypeCalculation QuestionType = "calculation"
	QuestionTypeProof      QuestionType = "proof"
	QuestionTypeOther      QuestionType = "other"
)

// KnowledgePoint is a single concept extracted from a document.
type KnowledgePoint struct {
	Title       string
	Definition  string
	Formulas    []string
	Concepts    []string
	Examples    []string
	SourcePages []int
}

// Question is a single exercise or exam question extracted from a document.
type Question struct {
	Number      int
	Type        QuestionType
	Content     string
	Options     []string
	Answer      string
	Explanation string
	Points      float64
	Difficulty  string
	SourcePages []int
}

// ExtractedItem is the union of the two extractable item kinds. Exactly one
// of Point and Question is set, matching Type.
type ExtractedItem struct {
	Type     ItemType
	Point    *KnowledgePoint
	Question *Question
}

// NewKnowledgePointItem wraps a KnowledgePoint as an ExtractedItem.
func NewKnowledgePointItem(p *KnowledgePoint) ExtractedItem {
	return ExtractedItem{Type: ItemTypeKnowledgePoint, Point: p}
}

// NewQuestionItem wraps a Question as an ExtractedItem.
func NewQuestionItem(q *Question) ExtractedItem {
	return ExtractedItem{Type: ItemTypeQuestion, Question: q}
}

// SourcePages returns the item's source page set regardless of kind.
func (i ExtractedItem) SourcePages() []int {
	switch i.Type {
	case ItemTypeKnowledgePoint:
		if i.Point != nil {
			return i.Point.SourcePages
		}
	case ItemTypeQuestion:
		if i.Question != nil {
			return i.Question.SourcePages
		}
	}
	return nil
}

// Title returns a short human-readable label for the item.
func (i ExtractedItem) Title() string {
	switch i.Type {
	case ItemTypeKnowledgePoint:
		if i.Point != nil {
			return i.Point.Title
		}
	case ItemTypeQuestion:
		if i.Question != nil {
			return fmt.Sprintf("Question %d", i.Question.Number)
		}
	}
	return ""
}

// ContentText renders the persisted, human-readable form of the item. This
// is the text that gets embedded and stored as chunk content.
func (i ExtractedItem) ContentText() string {
	switch i.Type {
	case ItemTypeKnowledgePoint:
		return i.Point.contentText()
	case ItemTypeQuestion:
		return i.Question.contentText()
	}
	return ""
}

func (p *KnowledgePoint) contentText() string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Definition != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Definition)
	}
	if len(p.Formulas) > 0 {
		b.WriteString("\n\nFormulas: ")
		b.WriteString(strings.Join(p.Formulas, "; "))
	}
	if len(p.Concepts) > 0 {
		b.WriteString("\n\nConcepts: ")
		b.WriteString(strings.Join(p.Concepts, ", "))
	}
	if len(p.Examples) > 0 {
		b.WriteString("\n\nExamples: ")
		b.WriteString(strings.Join(p.Examples, " | "))
	}
	return b.String()
}

func (q *Question) contentText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d", q.Number)
	if q.Type != "" {
		fmt.Fprintf(&b, " (%s)", q.Type)
	}
	b.WriteString("\n\n")
	b.WriteString(q.Content)
	if len(q.Options) > 0 {
		b.WriteString("\n")
		for idx, opt := range q.Options {
			fmt.Fprintf(&b, "\n%c. %s", 'A'+idx, opt)
		}
	}
	if q.Answer != "" {
		b.WriteString("\n\nAnswer: ")
		b.WriteString(q.Answer)
	}
	if q.Explanation != "" {
		b.WriteString("\n\nExplanation: ")
		b.WriteString(q.Explanation)
	}
	return b.String()
}

// Metadata returns the structured metadata carried alongside the chunk
// content, preserving the item's original fields.
func (i ExtractedItem) Metadata() map[string]any {
	switch i.Type {
	case ItemTypeKnowledgePoint:
		p := i.Point
		return map[string]any{
			"type":         string(ItemTypeKnowledgePoint),
			"title":        p.Title,
			"formulas":     p.Formulas,
			"concepts":     p.Concepts,
			"examples":     p.Examples,
			"source_pages": p.SourcePages,
		}
	case ItemTypeQuestion:
		q := i.Question
		return map[string]any{
			"type":          string(ItemTypeQuestion),
			"number":        q.Number,
			"question_type": string(q.Type),
			"options":       q.Options,
			"answer":        q.Answer,
			"points":        q.Points,
			"difficulty":    q.Difficulty,
			"source_pages":  q.SourcePages,
		}
	}
	return map[string]any{}
}

// NormalizePages sorts a page set ascending and removes duplicates and
// non-positive entries.
func NormalizePages(pages []int) []int {
	seen := make(map[int]bool, len(pages))
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// ValidateItem validates an ExtractedItem before persistence. An item with
// an empty source-page set is a validation failure, never a silent default.
func ValidateItem(i ExtractedItem) error {
	switch i.Type {
	case ItemTypeKnowledgePoint:
		if i.Point == nil {
			return fmt.Errorf("knowledge point payload is missing")
		}
		if i.Point.Title == "" {
			return fmt.Errorf("knowledge point Title is required")
		}
		if i.Point.Definition == "" {
			return fmt.Errorf("knowledge point Definition is required")
		}
		if len(i.Point.SourcePages) == 0 {
			return fmt.Errorf("knowledge point has no source pages")
		}
	case ItemTypeQuestion:
		if i.Question == nil {
			return fmt.Errorf("question payload is missing")
		}
		if i.Question.Number <= 0 {
			return fmt.Errorf("question Number must be greater than 0")
		}
		if i.Question.Content == "" {
			return fmt.Errorf("question Content is required")
		}
		if i.Question.Points < 0 {
			return fmt.Errorf("question Points cannot be negative")
		}
		if len(i.Question.SourcePages) == 0 {
			return fmt.Errorf("question has no source pages")
		}
	default:
		return fmt.Errorf("item Type is invalid: %s", i.Type)
	}
	return nil
}
