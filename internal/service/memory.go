package service

import (
	"context"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/pagination"
	"github.com/agiletec-inc/mindbase/internal/telemetry"
	"github.com/google/uuid"
)

// MemoryRepositoryInterface defines the repository interface for memory persistence
type MemoryRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Memory) error
	GetByID(ctx context.Context, id string) (*domain.Memory, error)
	ListWithCursor(ctx context.Context, project string, kind domain.MemoryKind, cursor *pagination.Cursor, limit int) (*MemoryPageResult, error)
	Delete(ctx context.Context, id string) error
}

type MemoryPageResult struct {
	Items      []*domain.Memory
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// MemoryService handles business logic for stored memories
type MemoryService struct {
	memoryRepo       MemoryRepositoryInterface
	embeddingJobRepo EmbeddingJobRepositoryInterface
	txRunner         TxRunner
	uuidGen          UUIDGenerator
}

// NewMemoryService creates a new MemoryService instance
func NewMemoryService(memoryRepo MemoryRepositoryInterface, embeddingJobRepo EmbeddingJobRepositoryInterface) *MemoryService {
	return &MemoryService{
		memoryRepo:       memoryRepo,
		embeddingJobRepo: embeddingJobRepo,
		uuidGen:          &DefaultUUIDGenerator{},
	}
}

// NewMemoryServiceWithTx creates a MemoryService that stores memories and
// their embedding jobs in one transaction.
func NewMemoryServiceWithTx(memoryRepo MemoryRepositoryInterface, embeddingJobRepo EmbeddingJobRepositoryInterface, txRunner TxRunner) *MemoryService {
	s := NewMemoryService(memoryRepo, embeddingJobRepo)
	s.txRunner = txRunner
	return s
}

// NewMemoryServiceWithUUIDGen creates a new MemoryService with custom UUID generator (for testing)
func NewMemoryServiceWithUUIDGen(memoryRepo MemoryRepositoryInterface, embeddingJobRepo EmbeddingJobRepositoryInterface, uuidGen UUIDGenerator) *MemoryService {
	return &MemoryService{
		memoryRepo:       memoryRepo,
		embeddingJobRepo: embeddingJobRepo,
		uuidGen:          uuidGen,
	}
}

// StoreInput represents the input for storing a memory
type StoreInput struct {
	Project  string
	Kind     domain.MemoryKind
	Content  string
	Tags     []string
	Metadata map[string]string
}

type ListMemoriesInput struct {
	Project string
	Kind    domain.MemoryKind
	Cursor  string
	Limit   int
}

type ListMemoriesOutput struct {
	Items   []*domain.Memory
	Cursor  string
	HasMore bool
}

// Store persists a memory and queues an embedding job for it.
func (s *MemoryService) Store(ctx context.Context, input StoreInput) (*domain.Memory, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Store", telemetry.SpanAttributes{
		Project:   input.Project,
		Operation: "store",
	})
	defer span.End()

	now := time.Now().UTC()
	memory := domain.NewMemory(s.uuidGen.NewString(), input.Project, input.Kind, input.Content, input.Tags, input.Metadata, now)

	if err := domain.ValidateMemory(memory); err != nil {
		return nil, err
	}

	job := domain.NewEmbeddingJobForMemory(s.uuidGen.NewString(), memory.ID, now)

	if s.txRunner != nil {
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Memories().Create(ctx, memory); err != nil {
				return err
			}
			return repos.EmbeddingJobs().Create(ctx, job)
		}); err != nil {
			return nil, err
		}
		return memory, nil
	}

	if err := s.memoryRepo.Create(ctx, memory); err != nil {
		return nil, err
	}
	if err := s.embeddingJobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return memory, nil
}

// GetByID retrieves a memory by ID
func (s *MemoryService) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.GetByID", telemetry.SpanAttributes{
		MemoryID:  id,
		Operation: "get",
	})
	defer span.End()

	return s.memoryRepo.GetByID(ctx, id)
}

// List returns a cursor-paginated page of memories for a project.
func (s *MemoryService) List(ctx context.Context, input ListMemoriesInput) (*ListMemoriesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.List", telemetry.SpanAttributes{
		Project:   input.Project,
		Operation: "list",
	})
	defer span.End()

	if input.Project == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if input.Kind != "" && !domain.IsValidMemoryKind(input.Kind) {
		return nil, domain.ErrInvalidMemoryKind
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	page, err := s.memoryRepo.ListWithCursor(ctx, input.Project, input.Kind, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListMemoriesOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Delete removes a memory and its chunk embeddings.
func (s *MemoryService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Delete", telemetry.SpanAttributes{
		MemoryID:  id,
		Operation: "delete",
	})
	defer span.End()

	if id == "" {
		return domain.ErrMissingRequiredField
	}

	return s.memoryRepo.Delete(ctx, id)
}
