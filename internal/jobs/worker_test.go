package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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

func (m *MockEmbeddingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// MockEmbeddingService is a mock implementation of EmbeddingService
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) GenerateMemoryEmbedding(ctx context.Context, memoryID string) error {
	args := m.Called(ctx, memoryID)
	return args.Error(0)
}

func (m *MockEmbeddingService) GenerateRepoFileEmbedding(ctx context.Context, repoFileID string) error {
	args := m.Called(ctx, repoFileID)
	return args.Error(0)
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

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestEmbeddingWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{}, nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertNotCalled(t, "GenerateMemoryEmbedding", mock.Anything, mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_Success tests successful job processing
func TestEmbeddingWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	job := &domain.EmbeddingJob{
		ID:       "job-1",
		MemoryID: "memory-1",
		Status:   domain.EmbeddingJobStatusPending,
		Retries:  0,
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("GenerateMemoryEmbedding", mock.Anything, "memory-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_RepoFileJob tests repo file job dispatch
func TestEmbeddingWorker_ProcessJobs_RepoFileJob(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	job := &domain.EmbeddingJob{
		ID:         "job-1",
		RepoFileID: "file-1",
		Status:     domain.EmbeddingJobStatusPending,
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("GenerateRepoFileEmbedding", mock.Anything, "file-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
	mockService.AssertNotCalled(t, "GenerateMemoryEmbedding", mock.Anything, mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_FailureWithRetry tests job failure with retry
func TestEmbeddingWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	job := &domain.EmbeddingJob{
		ID:       "job-1",
		MemoryID: "memory-1",
		Status:   domain.EmbeddingJobStatusPending,
		Retries:  0,
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("GenerateMemoryEmbedding", mock.Anything, "memory-1").Return(errors.New("embedding failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded tests job failure after max retries
func TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	job := &domain.EmbeddingJob{
		ID:       "job-1",
		MemoryID: "memory-1",
		Status:   domain.EmbeddingJobStatusPending,
		Retries:  2, // Already retried twice
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("GenerateMemoryEmbedding", mock.Anything, "memory-1").Return(errors.New("embedding failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_MultipleJobs tests processing multiple jobs
func TestEmbeddingWorker_ProcessJobs_MultipleJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", MemoryID: "memory-1", Status: domain.EmbeddingJobStatusPending},
		{ID: "job-2", MemoryID: "memory-2", Status: domain.EmbeddingJobStatusPending},
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(jobs, nil)

	mockService.On("GenerateMemoryEmbedding", mock.Anything, "memory-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	mockService.On("GenerateMemoryEmbedding", mock.Anything, "memory-2").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_RepositoryError tests repository error handling
func TestEmbeddingWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockEmbeddingService)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(nil, errors.New("database error"))

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending jobs")
	mockRepo.AssertExpectations(t)
}
