// Package schema validates and repairs loosely-typed AI JSON output against
// the expected extracted-item shapes. Invalid items are dropped with a
// reason rather than failing the whole payload.
package schema

import (
	"strconv"
	"strings"

	"github.com/studymill/studymill/internal/domain"
)

// maxPageRange caps dash-range expansion ("2-5") to prevent pathological
// ranges from a confused model.
const maxPageRange = 200

// CoercePages coerces a loosely-typed page-reference value into a clean
// page list. Accepted shapes: a single number, an array of numbers, a
// comma/whitespace-separated string of numbers, or a dash-separated range
// string. Anything else coerces to an empty list; non-positive or
// non-numeric entries are filtered out silently.
func CoercePages(v any) []int {
	switch val := v.(type) {
	case nil:
		return []int{}
	case float64:
		return domain.NormalizePages([]int{int(val)})
	case int:
		return domain.NormalizePages([]int{val})
	case []any:
		pages := make([]int, 0, len(val))
		for _, e := range val {
			switch n := e.(type) {
			case float64:
				pages = append(pages, int(n))
			case int:
				pages = append(pages, n)
			case string:
				pages = append(pages, parsePageString(n)...)
			}
		}
		return domain.NormalizePages(pages)
	case string:
		return domain.NormalizePages(parsePageString(val))
	}
	return []int{}
}

func parsePageString(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if lo, hi, ok := parseRange(s); ok {
		if hi-lo+1 > maxPageRange {
			hi = lo + maxPageRange - 1
		}
		pages := make([]int, 0, hi-lo+1)
		for p := lo; p <= hi; p++ {
			pages = append(pages, p)
		}
		return pages
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	pages := make([]int, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
			pages = append(pages, n)
		}
	}
	return pages
}

// parseRange parses "2-5" style range strings. A range with a non-numeric
// bound or inverted order is not a range.
func parseRange(s string) (lo, hi int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if lo <= 0 || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// loose accessors for map-shaped AI output

func asString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func asStringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func asInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func asFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

func asBool(m map[string]any, key string, fallback bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return fallback
}
