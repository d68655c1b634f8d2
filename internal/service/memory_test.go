package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMemoryRepository is a mock implementation of MemoryRepositoryInterface
type MockMemoryRepository struct {
	mock.Mock
}

func (m *MockMemoryRepository) Create(ctx context.Context, mem *domain.Memory) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *MockMemoryRepository) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memory), args.Error(1)
}

func (m *MockMemoryRepository) ListWithCursor(ctx context.Context, project string, kind domain.MemoryKind, cursor *pagination.Cursor, limit int) (*MemoryPageResult, error) {
	args := m.Called(ctx, project, kind, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MemoryPageResult), args.Error(1)
}

func (m *MockMemoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

// TestMemoryService_Store tests the Store method
func TestMemoryService_Store(t *testing.T) {
	ctx := context.Background()

	t.Run("stores memory and queues embedding job", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		mockJobRepo := new(MockEmbeddingJobRepository)
		mockUUIDGen := NewMockUUIDGenerator("memory-id-1", "job-id-1")

		service := NewMemoryServiceWithUUIDGen(mockMemoryRepo, mockJobRepo, mockUUIDGen)

		input := StoreInput{
			Project: "superclaude",
			Kind:    domain.MemoryKindSolution,
			Content: "use context.WithTimeout for outbound calls",
			Tags:    []string{"go", "context"},
		}

		mockMemoryRepo.On("Create", mock.Anything, mock.MatchedBy(func(mem *domain.Memory) bool {
			return mem.ID == "memory-id-1" &&
				mem.Project == "superclaude" &&
				mem.Kind == domain.MemoryKindSolution &&
				mem.Content == "use context.WithTimeout for outbound calls"
		})).Return(nil)

		mockJobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.EmbeddingJob) bool {
			return job.ID == "job-id-1" &&
				job.MemoryID == "memory-id-1" &&
				job.RepoFileID == "" &&
				job.Status == domain.EmbeddingJobStatusPending &&
				job.Retries == 0
		})).Return(nil)

		result, err := service.Store(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "memory-id-1", result.ID)
		assert.Equal(t, domain.MemoryKindSolution, result.Kind)
		assert.Equal(t, []string{"go", "context"}, result.Tags)

		mockMemoryRepo.AssertExpectations(t)
		mockJobRepo.AssertExpectations(t)
	})

	t.Run("defaults kind to note", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		mockJobRepo := new(MockEmbeddingJobRepository)
		mockUUIDGen := NewMockUUIDGenerator("memory-id-1", "job-id-1")

		service := NewMemoryServiceWithUUIDGen(mockMemoryRepo, mockJobRepo, mockUUIDGen)

		mockMemoryRepo.On("Create", mock.Anything, mock.MatchedBy(func(mem *domain.Memory) bool {
			return mem.Kind == domain.MemoryKindNote
		})).Return(nil)
		mockJobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := service.Store(ctx, StoreInput{Project: "superclaude", Content: "a note"})

		require.NoError(t, err)
		assert.Equal(t, domain.MemoryKindNote, result.Kind)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		service := NewMemoryServiceWithUUIDGen(new(MockMemoryRepository), new(MockEmbeddingJobRepository), NewMockUUIDGenerator("id-1"))

		result, err := service.Store(ctx, StoreInput{Project: "superclaude", Content: "   "})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrEmptyMemoryContent)
	})

	t.Run("rejects missing project", func(t *testing.T) {
		service := NewMemoryServiceWithUUIDGen(new(MockMemoryRepository), new(MockEmbeddingJobRepository), NewMockUUIDGenerator("id-1"))

		_, err := service.Store(ctx, StoreInput{Content: "content"})

		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		service := NewMemoryServiceWithUUIDGen(new(MockMemoryRepository), new(MockEmbeddingJobRepository), NewMockUUIDGenerator("id-1"))

		_, err := service.Store(ctx, StoreInput{Project: "superclaude", Kind: "wisdom", Content: "content"})

		assert.ErrorIs(t, err, domain.ErrInvalidMemoryKind)
	})

	t.Run("propagates repository error", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		mockJobRepo := new(MockEmbeddingJobRepository)
		service := NewMemoryServiceWithUUIDGen(mockMemoryRepo, mockJobRepo, NewMockUUIDGenerator("id-1", "id-2"))

		mockMemoryRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := service.Store(ctx, StoreInput{Project: "superclaude", Content: "content"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		mockJobRepo.AssertNotCalled(t, "Create")
	})
}

func TestMemoryService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns memory", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		service := NewMemoryService(mockMemoryRepo, new(MockEmbeddingJobRepository))

		expected := domain.NewMemory("memory-id-1", "superclaude", domain.MemoryKindNote, "content", nil, nil, time.Now().UTC())
		mockMemoryRepo.On("GetByID", mock.Anything, "memory-id-1").Return(expected, nil)

		result, err := service.GetByID(ctx, "memory-id-1")

		require.NoError(t, err)
		assert.Equal(t, expected, result)
	})

	t.Run("propagates not found", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		service := NewMemoryService(mockMemoryRepo, new(MockEmbeddingJobRepository))

		mockMemoryRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrMemoryNotFound)

		_, err := service.GetByID(ctx, "missing")

		assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
	})
}

func TestMemoryService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists with default limit", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		service := NewMemoryService(mockMemoryRepo, new(MockEmbeddingJobRepository))

		page := &MemoryPageResult{
			Items:      []*domain.Memory{{ID: "memory-id-1"}},
			NextCursor: "next",
			HasMore:    true,
		}
		mockMemoryRepo.On("ListWithCursor", mock.Anything, "superclaude", "", (*pagination.Cursor)(nil), 20).Return(page, nil)

		out, err := service.List(ctx, ListMemoriesInput{Project: "superclaude"})

		require.NoError(t, err)
		assert.Len(t, out.Items, 1)
		assert.Equal(t, "next", out.Cursor)
		assert.True(t, out.HasMore)
	})

	t.Run("rejects missing project", func(t *testing.T) {
		service := NewMemoryService(new(MockMemoryRepository), new(MockEmbeddingJobRepository))

		_, err := service.List(ctx, ListMemoriesInput{})

		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("rejects invalid cursor", func(t *testing.T) {
		service := NewMemoryService(new(MockMemoryRepository), new(MockEmbeddingJobRepository))

		_, err := service.List(ctx, ListMemoriesInput{Project: "superclaude", Cursor: "not-base64!"})

		assert.ErrorIs(t, err, domain.ErrInvalidCursor)
	})

	t.Run("rejects invalid kind filter", func(t *testing.T) {
		service := NewMemoryService(new(MockMemoryRepository), new(MockEmbeddingJobRepository))

		_, err := service.List(ctx, ListMemoriesInput{Project: "superclaude", Kind: "wisdom"})

		assert.ErrorIs(t, err, domain.ErrInvalidMemoryKind)
	})
}

func TestMemoryService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes memory", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		service := NewMemoryService(mockMemoryRepo, new(MockEmbeddingJobRepository))

		mockMemoryRepo.On("Delete", mock.Anything, "memory-id-1").Return(nil)

		err := service.Delete(ctx, "memory-id-1")

		require.NoError(t, err)
		mockMemoryRepo.AssertExpectations(t)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		service := NewMemoryService(new(MockMemoryRepository), new(MockEmbeddingJobRepository))

		err := service.Delete(ctx, "")

		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("propagates not found", func(t *testing.T) {
		mockMemoryRepo := new(MockMemoryRepository)
		service := NewMemoryService(mockMemoryRepo, new(MockEmbeddingJobRepository))

		mockMemoryRepo.On("Delete", mock.Anything, "missing").Return(domain.ErrMemoryNotFound)

		err := service.Delete(ctx, "missing")

		assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
	})
}
