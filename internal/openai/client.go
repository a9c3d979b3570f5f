package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the model used for JSON-mode content generation
	DefaultCompletionModel = openai.GPT4oMini

	// defaultMaxAttempts bounds embedding retries: one initial call plus
	// two retries with doubling delay.
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation. The request
// shape is batched, matching the upstream API; single-text callers pass a
// one-element slice.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionAPI defines the interface for JSON-mode content generation
type CompletionAPI interface {
	CreateJSONCompletion(ctx context.Context, prompt string) (string, error)
}

// Client wraps the OpenAI API with the two call types the pipeline needs:
// one embedding call and one JSON-mode completion call.
type Client struct {
	embeddings  EmbeddingAPI
	completions CompletionAPI
	dimensions  int
	maxAttempts int
	baseDelay   time.Duration
}

type OpenAIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
}

func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, completionModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}
	return &OpenAIAdapter{
		client:          openai.NewClient(apiKey),
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings for a batch
// of texts. A response with no data yields empty vectors, the documented
// empty-result sentinel, never an error.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i := range out {
		if i < len(resp.Data) {
			out[i] = resp.Data[i].Embedding
		} else {
			out[i] = []float32{}
		}
	}
	return out, nil
}

// CreateJSONCompletion calls the OpenAI chat API in JSON mode at
// temperature 0 and returns the raw response text. Empty or non-JSON text
// is a valid outcome handled by the caller, not a protocol violation.
func (a *OpenAIAdapter) CreateJSONCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	CompletionModel     string
	EmbeddingDimensions int
	MaxAttempts         int
	BaseDelay           time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.CompletionModel)
	return &Client{
		embeddings:  adapter,
		completions: adapter,
		dimensions:  dimensions,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// NewClientWithAPIs creates a client over explicit API implementations (for tests).
func NewClientWithAPIs(embeddings EmbeddingAPI, completions CompletionAPI, dimensions int) *Client {
	return &Client{
		embeddings:  embeddings,
		completions: completions,
		dimensions:  dimensions,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   time.Millisecond,
	}
}

// GenerateEmbedding generates an embedding for the given text, retrying
// transient failures with exponential backoff. Only the embedding call
// retries; all other AI calls treat failure as terminal.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateEmbeddings generates embeddings for a batch of texts in one API
// call, with the same retry policy as GenerateEmbedding.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	operation := func() error {
		var err error
		vectors, err = c.embeddings.CreateEmbeddings(ctx, texts)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	for i, v := range vectors {
		// Empty vector is the documented empty-result sentinel.
		if len(v) == 0 {
			continue
		}
		if len(v) != expected {
			return nil, fmt.Errorf("%w: text %d expected %d, got %d", ErrWrongDimensions, i, expected, len(v))
		}
	}

	return vectors, nil
}

// GenerateJSON runs one JSON-mode completion and returns the raw text.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	text, err := c.completions.CreateJSONCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	return text, nil
}

// isTransient reports whether an OpenAI API error is worth retrying:
// rate limits, server errors, and transport-level failures.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}
	// Network-level errors arrive unwrapped.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
