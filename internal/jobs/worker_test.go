package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/studymill/studymill/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepository
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// MockChunkStore is a mock implementation of ChunkStore
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockChunkStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	wg.Wait()
}

func pendingJob(id, chunkID string, retries int32) *domain.EmbeddingJob {
	return &domain.EmbeddingJob{
		ID:        id,
		ChunkID:   chunkID,
		Status:    domain.EmbeddingJobStatusPending,
		Retries:   retries,
		CreatedAt: time.Now().UTC(),
	}
}

func TestEmbeddingWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedding := new(MockEmbeddingClient)

	job := pendingJob("job-1", "chunk-1", 0)
	chunk := &domain.KnowledgeChunk{ID: "chunk-1", Content: "chunk content"}
	vector := []float32{0.1, 0.2, 0.3}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	mockEmbedding.On("GenerateEmbedding", mock.Anything, "chunk content").Return(vector, nil)
	mockChunks.On("UpdateEmbedding", mock.Anything, "chunk-1", vector).Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockChunks, mockEmbedding)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockChunks.AssertExpectations(t)
	mockEmbedding.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_NoJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedding := new(MockEmbeddingClient)

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{}, nil)

	worker := NewEmbeddingWorker(mockRepo, mockChunks, mockEmbedding)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockChunks.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestEmbeddingWorker_ProcessJobs_RetriesOnFailure(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedding := new(MockEmbeddingClient)

	job := pendingJob("job-1", "chunk-1", 0)
	chunk := &domain.KnowledgeChunk{ID: "chunk-1", Content: "chunk content"}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	mockEmbedding.On("GenerateEmbedding", mock.Anything, "chunk content").Return(nil, errors.New("rate limited"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.Anything).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockChunks, mockEmbedding)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedding := new(MockEmbeddingClient)

	job := pendingJob("job-1", "chunk-1", MaxRetries-1)

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(nil, errors.New("chunk gone"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.Anything).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockChunks, mockEmbedding)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_EmptyVectorSkipsUpdate(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedding := new(MockEmbeddingClient)

	job := pendingJob("job-1", "chunk-1", 0)
	chunk := &domain.KnowledgeChunk{ID: "chunk-1", Content: "chunk content"}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	mockEmbedding.On("GenerateEmbedding", mock.Anything, "chunk content").Return([]float32{}, nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockChunks, mockEmbedding)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockChunks.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}
