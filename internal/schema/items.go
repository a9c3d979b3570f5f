package schema

import (
	"fmt"
	"strings"

	"github.com/studymill/studymill/internal/domain"
)

// Section groups item indexes under a heading, as returned for assignment
// documents. Indexes refer to positions in the validated item list.
type Section struct {
	Title string
	Items []int
}

// DefaultSectionTitle names the synthesized grouping container used when
// the payload carries no usable sections.
const DefaultSectionTitle = "All items"

// ParseItem validates and repairs a single loosely-typed item object.
func ParseItem(raw map[string]any) (domain.ExtractedItem, error) {
	itemType := strings.ToLower(asString(raw, "type"))
	switch itemType {
	case "question":
		return parseQuestion(raw)
	case "knowledge_point", "":
		// Knowledge points are the dominant shape; a missing type tag on
		// an object with a title and definition is repaired, not rejected.
		return parseKnowledgePoint(raw)
	default:
		return domain.ExtractedItem{}, fmt.Errorf("unknown item type %q", itemType)
	}
}

func parseKnowledgePoint(raw map[string]any) (domain.ExtractedItem, error) {
	point := &domain.KnowledgePoint{
		Title:       asString(raw, "title"),
		Definition:  asString(raw, "definition"),
		Formulas:    asStringSlice(raw, "formulas"),
		Concepts:    asStringSlice(raw, "concepts"),
		Examples:    asStringSlice(raw, "examples"),
		SourcePages: CoercePages(raw["source_pages"]),
	}
	item := domain.NewKnowledgePointItem(point)
	if err := domain.ValidateItem(item); err != nil {
		return domain.ExtractedItem{}, err
	}
	return item, nil
}

func parseQuestion(raw map[string]any) (domain.ExtractedItem, error) {
	question := &domain.Question{
		Number:      asInt(raw, "number"),
		Type:        domain.QuestionType(strings.ToLower(asString(raw, "question_type"))),
		Content:     asString(raw, "content"),
		Options:     asStringSlice(raw, "options"),
		Answer:      asString(raw, "answer"),
		Explanation: asString(raw, "explanation"),
		Points:      asFloat(raw, "points"),
		Difficulty:  strings.ToLower(asString(raw, "difficulty")),
		SourcePages: CoercePages(raw["source_pages"]),
	}
	if question.Type == "" {
		question.Type = domain.QuestionTypeOther
	}
	item := domain.NewQuestionItem(question)
	if err := domain.ValidateItem(item); err != nil {
		return domain.ExtractedItem{}, err
	}
	return item, nil
}

// ValidateItems validates a loosely-typed item list with item-level partial
// recovery: valid items are kept, invalid ones dropped, and the reasons
// reported as warnings. When any item was dropped the first warning reads
// "Recovered N/M items".
func ValidateItems(raw any) ([]domain.ExtractedItem, []string) {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return []domain.ExtractedItem{}, nil
		}
		return []domain.ExtractedItem{}, []string{fmt.Sprintf("items field has unexpected type %T", raw)}
	}

	items := make([]domain.ExtractedItem, 0, len(list))
	var issues []string
	for idx, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			issues = append(issues, fmt.Sprintf("item %d: not an object", idx))
			continue
		}
		item, err := ParseItem(obj)
		if err != nil {
			issues = append(issues, fmt.Sprintf("item %d: %v", idx, err))
			continue
		}
		items = append(items, item)
	}

	var warnings []string
	if len(issues) > 0 {
		warnings = append(warnings, fmt.Sprintf("Recovered %d/%d items", len(items), len(list)))
		warnings = append(warnings, issues...)
	}
	return items, warnings
}

// ParseSections validates a loosely-typed section list against the item
// count. Out-of-range indexes are dropped silently.
func ParseSections(raw any, itemCount int) []Section {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	sections := make([]Section, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		section := Section{Title: asString(obj, "title")}
		if section.Title == "" {
			continue
		}
		if idxs, ok := obj["items"].([]any); ok {
			for _, e := range idxs {
				if n, ok := e.(float64); ok {
					idx := int(n)
					if idx >= 0 && idx < itemCount {
						section.Items = append(section.Items, idx)
					}
				}
			}
		}
		sections = append(sections, section)
	}
	return sections
}

// EnsureSections guarantees downstream consumers a well-formed section
// list: when none survived validation, a single default grouping container
// covering every item (possibly none) is synthesized.
func EnsureSections(sections []Section, itemCount int) []Section {
	if len(sections) > 0 {
		return sections
	}
	all := make([]int, itemCount)
	for i := range all {
		all[i] = i
	}
	return []Section{{Title: DefaultSectionTitle, Items: all}}
}
