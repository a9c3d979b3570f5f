package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoercePages(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []int
	}{
		{"nil", nil, []int{}},
		{"single number", float64(3), []int{3}},
		{"array of numbers", []any{float64(2), float64(1), float64(2)}, []int{1, 2}},
		{"comma separated", "1, 2, 3", []int{1, 2, 3}},
		{"whitespace separated", "4 6 5", []int{4, 5, 6}},
		{"dash range", "2-5", []int{2, 3, 4, 5}},
		{"inverted range ignored", "5-2", []int{}},
		{"non-numeric entries filtered", "1, x, 3", []int{1, 3}},
		{"non-positive filtered", []any{float64(0), float64(-2), float64(7)}, []int{7}},
		{"object coerces to empty", map[string]any{"page": 1}, []int{}},
		{"bool coerces to empty", true, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoercePages(tt.input))
		})
	}
}

func TestCoercePages_RangeCap(t *testing.T) {
	pages := CoercePages("1-100000")
	assert.Len(t, pages, maxPageRange)
	assert.Equal(t, 1, pages[0])
	assert.Equal(t, maxPageRange, pages[len(pages)-1])
}

func TestCoercePages_MixedArrayWithStrings(t *testing.T) {
	pages := CoercePages([]any{"2-4", float64(1)})
	assert.Equal(t, []int{1, 2, 3, 4}, pages)
}
