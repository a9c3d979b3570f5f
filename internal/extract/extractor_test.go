package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJSONGenerator mocks the AI content-generation call
type MockJSONGenerator struct {
	mock.Mock
}

func (m *MockJSONGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var testPages = []Page{
	{Number: 1, Text: "Introduction to derivatives."},
	{Number: 2, Text: "The chain rule."},
}

func TestExtract_AlreadyCancelled(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	cancel := pipeline.NewCanceller()
	cancel.Cancel()

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, cancel)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.Sections, 1)
	mockAI.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
}

func TestExtract_Success(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	response := `{"items": [
		{"type": "knowledge_point", "title": "Chain rule", "definition": "Derivative of a composition.", "source_pages": [2]},
		{"type": "knowledge_point", "title": "Derivative", "definition": "Instantaneous rate of change.", "source_pages": "1"}
	]}`
	mockAI.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return(response, nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Chain rule", result.Items[0].Point.Title)
	assert.Equal(t, []int{1}, result.Items[1].Point.SourcePages)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, []int{0, 1}, result.Sections[0].Items)
	mockAI.AssertNumberOfCalls(t, "GenerateJSON", 1)
}

func TestExtract_CallFailureIsFatal(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	mockAI.On("GenerateJSON", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction call failed")
}

func TestExtract_EmptyResponseIsWarning(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	mockAI.On("GenerateJSON", mock.Anything, mock.Anything).Return("", nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "empty response")
}

func TestExtract_InvalidJSONWarningCarriesLengthOnly(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	garbage := "I could not produce JSON today, sorry."
	mockAI.On("GenerateJSON", mock.Anything, mock.Anything).Return(garbage, nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], fmt.Sprintf("%d bytes", len(garbage)))
	assert.NotContains(t, result.Warnings[0], "sorry")
}

func TestExtract_PartialRecovery(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	response := `{"items": [
		{"type": "knowledge_point", "title": "Valid", "definition": "d", "source_pages": [1]},
		{"type": "knowledge_point", "title": "No pages", "definition": "d"},
		{"type": "mystery", "title": "Unknown"}
	]}`
	mockAI.On("GenerateJSON", mock.Anything, mock.Anything).Return(response, nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "Recovered 1/3")
}

func TestExtract_AssignmentSectionsAndMeta(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	response := `{
		"metadata": {"title": "Homework 3", "total_points": 40},
		"sections": [{"title": "Part A", "items": [0]}],
		"items": [{"type": "question", "number": 1, "content": "Prove it.", "source_pages": [1]}]
	}`
	mockAI.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return(response, nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindAssignment, testPages, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "Part A", result.Sections[0].Title)
	assert.Equal(t, "Homework 3", result.Meta["title"])
}

func TestExtract_ZeroItemsSynthesizesDefaultSection(t *testing.T) {
	mockAI := new(MockJSONGenerator)
	extractor := NewExtractor(mockAI)

	mockAI.On("GenerateJSON", mock.Anything, mock.Anything).Return(`{"items": []}`, nil)

	result, err := extractor.Extract(context.Background(), domain.DocumentKindLecture, testPages, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.Sections, 1)
	assert.Empty(t, result.Sections[0].Items)
}
