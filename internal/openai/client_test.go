package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	responses [][]float32 // one vector per call, repeated for each input text
	errs      []error
	calls     int
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = f.responses[idx]
		}
		return out, nil
	}
	return nil, errors.New("no scripted response")
}

type fakeCompletionAPI struct {
	text string
	err  error
}

func (f *fakeCompletionAPI) CreateJSONCompletion(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

func makeVector(dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}

func TestGenerateEmbedding_Success(t *testing.T) {
	api := &fakeEmbeddingAPI{responses: [][]float32{makeVector(8)}}
	client := NewClientWithAPIs(api, nil, 8)

	embedding, err := client.GenerateEmbedding(context.Background(), "some text")

	require.NoError(t, err)
	assert.Len(t, embedding, 8)
	assert.Equal(t, 1, api.calls)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	client := NewClientWithAPIs(api, nil, 8)

	_, err := client.GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, api.calls)
}

func TestGenerateEmbedding_EmptyVectorSentinel(t *testing.T) {
	api := &fakeEmbeddingAPI{responses: [][]float32{{}}}
	client := NewClientWithAPIs(api, nil, 8)

	embedding, err := client.GenerateEmbedding(context.Background(), "text")

	require.NoError(t, err)
	assert.Empty(t, embedding)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	api := &fakeEmbeddingAPI{responses: [][]float32{makeVector(3)}}
	client := NewClientWithAPIs(api, nil, 8)

	_, err := client.GenerateEmbedding(context.Background(), "text")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbedding_RetriesTransientFailures(t *testing.T) {
	transient := &openai.APIError{HTTPStatusCode: 503}
	api := &fakeEmbeddingAPI{
		errs:      []error{transient, transient, nil},
		responses: [][]float32{nil, nil, makeVector(8)},
	}
	client := NewClientWithAPIs(api, nil, 8)

	embedding, err := client.GenerateEmbedding(context.Background(), "text")

	require.NoError(t, err)
	assert.Len(t, embedding, 8)
	assert.Equal(t, 3, api.calls)
}

func TestGenerateEmbedding_ExhaustsRetries(t *testing.T) {
	transient := &openai.APIError{HTTPStatusCode: 500}
	api := &fakeEmbeddingAPI{errs: []error{transient, transient, transient, transient}}
	client := NewClientWithAPIs(api, nil, 8)

	_, err := client.GenerateEmbedding(context.Background(), "text")

	require.Error(t, err)
	assert.Equal(t, 3, api.calls)
}

func TestGenerateEmbedding_PermanentErrorNotRetried(t *testing.T) {
	permanent := &openai.APIError{HTTPStatusCode: 400}
	api := &fakeEmbeddingAPI{errs: []error{permanent}}
	client := NewClientWithAPIs(api, nil, 8)

	_, err := client.GenerateEmbedding(context.Background(), "text")

	require.Error(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestGenerateEmbeddings_Batch(t *testing.T) {
	api := &fakeEmbeddingAPI{responses: [][]float32{makeVector(8)}}
	client := NewClientWithAPIs(api, nil, 8)

	vectors, err := client.GenerateEmbeddings(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, 1, api.calls)
}

func TestGenerateEmbeddings_EmptyInput(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	client := NewClientWithAPIs(api, nil, 8)

	vectors, err := client.GenerateEmbeddings(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, api.calls)
}

func TestGenerateJSON(t *testing.T) {
	client := NewClientWithAPIs(nil, &fakeCompletionAPI{text: `{"items": []}`}, 8)

	text, err := client.GenerateJSON(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, `{"items": []}`, text)
}

func TestGenerateJSON_ErrorPropagates(t *testing.T) {
	client := NewClientWithAPIs(nil, &fakeCompletionAPI{err: errors.New("boom")}, 8)

	_, err := client.GenerateJSON(context.Background(), "prompt")

	assert.Error(t, err)
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
