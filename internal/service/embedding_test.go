package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

// MockEmbeddingMemoryRepository is a mock implementation of EmbeddingMemoryRepository
type MockEmbeddingMemoryRepository struct {
	mock.Mock
}

func (m *MockEmbeddingMemoryRepository) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memory), args.Error(1)
}

// MockEmbeddingChunkRepository is a mock implementation of EmbeddingChunkRepository
type MockEmbeddingChunkRepository struct {
	mock.Mock
}

func (m *MockEmbeddingChunkRepository) ReplaceChunks(ctx context.Context, memoryID string, chunks []domain.MemoryChunk) error {
	args := m.Called(ctx, memoryID, chunks)
	return args.Error(0)
}

// MockEmbeddingRepoFileRepository is a mock implementation of EmbeddingRepoFileRepository
type MockEmbeddingRepoFileRepository struct {
	mock.Mock
}

func (m *MockEmbeddingRepoFileRepository) GetByID(ctx context.Context, id string) (*domain.RepoFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoFile), args.Error(1)
}

func (m *MockEmbeddingRepoFileRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestEmbeddingService_GenerateMemoryEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds short memory as a single chunk", func(t *testing.T) {
		mockClient := new(MockEmbeddingClient)
		mockMemoryRepo := new(MockEmbeddingMemoryRepository)
		mockChunkRepo := new(MockEmbeddingChunkRepository)
		service := NewEmbeddingService(mockClient, mockMemoryRepo, mockChunkRepo, nil)

		memory := domain.NewMemory("memory-id-1", "superclaude", domain.MemoryKindNote, "short content", []string{"go"}, nil, time.Now().UTC())
		mockMemoryRepo.On("GetByID", mock.Anything, "memory-id-1").Return(memory, nil)

		embedding := []float32{0.1, 0.2, 0.3}
		mockClient.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(text string) bool {
			return strings.Contains(text, "short content") && strings.Contains(text, "go")
		})).Return(embedding, nil)

		mockChunkRepo.On("ReplaceChunks", mock.Anything, "memory-id-1", mock.MatchedBy(func(chunks []domain.MemoryChunk) bool {
			return len(chunks) == 1 &&
				chunks[0].MemoryID == "memory-id-1" &&
				chunks[0].ChunkIndex == 0 &&
				chunks[0].Content == "short content"
		})).Return(nil)

		err := service.GenerateMemoryEmbedding(ctx, "memory-id-1")

		require.NoError(t, err)
		mockClient.AssertExpectations(t)
		mockMemoryRepo.AssertExpectations(t)
		mockChunkRepo.AssertExpectations(t)
	})

	t.Run("splits long memory into multiple chunks", func(t *testing.T) {
		mockClient := new(MockEmbeddingClient)
		mockMemoryRepo := new(MockEmbeddingMemoryRepository)
		mockChunkRepo := new(MockEmbeddingChunkRepository)
		service := NewEmbeddingService(mockClient, mockMemoryRepo, mockChunkRepo, nil)

		long := strings.Repeat("word ", 600) // well past MaxChars
		memory := domain.NewMemory("memory-id-1", "superclaude", domain.MemoryKindNote, long, nil, nil, time.Now().UTC())
		mockMemoryRepo.On("GetByID", mock.Anything, "memory-id-1").Return(memory, nil)

		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
		mockChunkRepo.On("ReplaceChunks", mock.Anything, "memory-id-1", mock.MatchedBy(func(chunks []domain.MemoryChunk) bool {
			if len(chunks) < 2 {
				return false
			}
			for i, c := range chunks {
				if c.ChunkIndex != i {
					return false
				}
			}
			return true
		})).Return(nil)

		err := service.GenerateMemoryEmbedding(ctx, "memory-id-1")

		require.NoError(t, err)
	})

	t.Run("propagates embedding client error", func(t *testing.T) {
		mockClient := new(MockEmbeddingClient)
		mockMemoryRepo := new(MockEmbeddingMemoryRepository)
		mockChunkRepo := new(MockEmbeddingChunkRepository)
		service := NewEmbeddingService(mockClient, mockMemoryRepo, mockChunkRepo, nil)

		memory := domain.NewMemory("memory-id-1", "superclaude", domain.MemoryKindNote, "content", nil, nil, time.Now().UTC())
		mockMemoryRepo.On("GetByID", mock.Anything, "memory-id-1").Return(memory, nil)
		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("ollama unreachable"))

		err := service.GenerateMemoryEmbedding(ctx, "memory-id-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama unreachable")
		mockChunkRepo.AssertNotCalled(t, "ReplaceChunks")
	})

	t.Run("propagates memory not found", func(t *testing.T) {
		mockClient := new(MockEmbeddingClient)
		mockMemoryRepo := new(MockEmbeddingMemoryRepository)
		service := NewEmbeddingService(mockClient, mockMemoryRepo, new(MockEmbeddingChunkRepository), nil)

		mockMemoryRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrMemoryNotFound)

		err := service.GenerateMemoryEmbedding(ctx, "missing")

		assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
	})
}

func TestEmbeddingService_GenerateRepoFileEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds repo file content with path header", func(t *testing.T) {
		mockClient := new(MockEmbeddingClient)
		mockRepoFileRepo := new(MockEmbeddingRepoFileRepository)
		service := NewEmbeddingService(mockClient, new(MockEmbeddingMemoryRepository), new(MockEmbeddingChunkRepository), mockRepoFileRepo)

		file := &domain.RepoFile{
			ID:       "file-id-1",
			Project:  "superclaude",
			Path:     "internal/server/router.go",
			Language: "go",
			Content:  "package server",
		}
		mockRepoFileRepo.On("GetByID", mock.Anything, "file-id-1").Return(file, nil)

		embedding := []float32{0.9}
		mockClient.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(text string) bool {
			return strings.Contains(text, "File: internal/server/router.go") &&
				strings.Contains(text, "package server")
		})).Return(embedding, nil)

		mockRepoFileRepo.On("UpdateEmbedding", mock.Anything, "file-id-1", embedding).Return(nil)

		err := service.GenerateRepoFileEmbedding(ctx, "file-id-1")

		require.NoError(t, err)
		mockRepoFileRepo.AssertExpectations(t)
	})

	t.Run("errors when repo file repository is not configured", func(t *testing.T) {
		service := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingMemoryRepository), new(MockEmbeddingChunkRepository), nil)

		err := service.GenerateRepoFileEmbedding(ctx, "file-id-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestChunkText(t *testing.T) {
	t.Run("empty input produces no chunks", func(t *testing.T) {
		assert.Nil(t, chunkText("   ", DefaultChunkConfig()))
	})

	t.Run("short input is a single chunk", func(t *testing.T) {
		chunks := chunkText("hello world", DefaultChunkConfig())
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0])
	})

	t.Run("long input splits at whitespace", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma ", 200)
		chunks := chunkText(text, DefaultChunkConfig())

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), DefaultChunkConfig().MaxChars)
			assert.NotEmpty(t, strings.TrimSpace(c))
		}
	})

	t.Run("respects max chunk count", func(t *testing.T) {
		cfg := ChunkConfig{MaxChars: 10, MinChars: 2, Overlap: 0, MaxChunks: 3}
		chunks := chunkText(strings.Repeat("abcdefgh ", 50), cfg)
		assert.Len(t, chunks, 3)
	})
}
