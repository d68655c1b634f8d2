package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingMemoryRepository defines the repository interface for memory embedding operations
type EmbeddingMemoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Memory, error)
}

// EmbeddingChunkRepository defines the repository interface for chunked memory embeddings
type EmbeddingChunkRepository interface {
	ReplaceChunks(ctx context.Context, memoryID string, chunks []domain.MemoryChunk) error
}

// EmbeddingRepoFileRepository defines the repository interface for repo file embedding operations
type EmbeddingRepoFileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.RepoFile, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores embeddings for memories and
// indexed repository files. It is driven by the background worker.
type EmbeddingService struct {
	client       EmbeddingClient
	memoryRepo   EmbeddingMemoryRepository
	chunkRepo    EmbeddingChunkRepository
	repoFileRepo EmbeddingRepoFileRepository
	chunkCfg     ChunkConfig
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, memoryRepo EmbeddingMemoryRepository, chunkRepo EmbeddingChunkRepository, repoFileRepo EmbeddingRepoFileRepository) *EmbeddingService {
	return &EmbeddingService{
		client:       client,
		memoryRepo:   memoryRepo,
		chunkRepo:    chunkRepo,
		repoFileRepo: repoFileRepo,
		chunkCfg:     DefaultChunkConfig(),
	}
}

// GenerateMemoryEmbedding generates chunk embeddings for the given memory ID.
func (s *EmbeddingService) GenerateMemoryEmbedding(ctx context.Context, memoryID string) error {
	memory, err := s.memoryRepo.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}

	chunks := chunkText(memory.Content, s.chunkCfg)
	if len(chunks) == 0 {
		return fmt.Errorf("memory %s has no content to embed", memoryID)
	}

	createdAt := time.Now().UTC()
	entries := make([]domain.MemoryChunk, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, buildChunkEmbeddingText(memory, chunk))
		if err != nil {
			return fmt.Errorf("failed to generate chunk embedding: %w", err)
		}

		entries = append(entries, domain.MemoryChunk{
			MemoryID:   memory.ID,
			ChunkIndex: i,
			Content:    chunk,
			Embedding:  embedding,
			CreatedAt:  createdAt,
		})
	}

	if err := s.chunkRepo.ReplaceChunks(ctx, memoryID, entries); err != nil {
		return fmt.Errorf("failed to update memory chunks: %w", err)
	}

	return nil
}

// GenerateRepoFileEmbedding generates and stores an embedding for one
// indexed repository file chunk.
func (s *EmbeddingService) GenerateRepoFileEmbedding(ctx context.Context, repoFileID string) error {
	if s.repoFileRepo == nil {
		return fmt.Errorf("repo file repository not configured")
	}

	file, err := s.repoFileRepo.GetByID(ctx, repoFileID)
	if err != nil {
		return err
	}

	text := buildRepoFileEmbeddingText(file)
	if text == "" {
		return fmt.Errorf("repo file %s has no content to embed", repoFileID)
	}

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repoFileRepo.UpdateEmbedding(ctx, repoFileID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// buildChunkEmbeddingText prefixes the chunk with the memory's kind and
// tags so retrieval can match on them too.
func buildChunkEmbeddingText(m *domain.Memory, chunk string) string {
	var parts []string
	if m.Kind != "" {
		parts = append(parts, string(m.Kind))
	}
	if len(m.Tags) > 0 {
		parts = append(parts, strings.Join(m.Tags, ", "))
	}
	parts = append(parts, chunk)
	return strings.Join(parts, "\n\n")
}

func buildRepoFileEmbeddingText(f *domain.RepoFile) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("File: %s", f.Path))
	if f.Language != "" {
		parts = append(parts, fmt.Sprintf("Language: %s", f.Language))
	}
	if strings.TrimSpace(f.Content) != "" {
		parts = append(parts, f.Content)
	}

	if len(parts) == 1 && strings.TrimSpace(f.Path) == "" {
		return ""
	}
	return strings.Join(parts, "\n\n")
}
