package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
)

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeLexical  SearchMode = "lexical"
)

// SearchFilters narrows a search to a project and optionally kind/tags.
type SearchFilters struct {
	Project string
	Kind    domain.MemoryKind
	Tags    []string
}

// SearchInput is a search request.
type SearchInput struct {
	Query   string
	Mode    SearchMode
	Filters SearchFilters
	Limit   int
}

// SearchResult is one ranked memory.
type SearchResult struct {
	ID         string            `json:"id"`
	Kind       domain.MemoryKind `json:"kind"`
	Snippet    string            `json:"snippet"`
	Tags       []string          `json:"tags,omitempty"`
	Score      float32           `json:"score"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ChunkID    string            `json:"chunk_id,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
}

// ChunkSearchResult is a raw chunk hit before aggregation to memory level.
type ChunkSearchResult struct {
	ChunkID    string
	MemoryID   string
	Kind       domain.MemoryKind
	Tags       []string
	ChunkIndex int
	Content    string
	Score      float32
	UpdatedAt  time.Time
}

// SearchOutput is the response envelope for a search.
type SearchOutput struct {
	Results []*SearchResult `json:"results"`
	Mode    SearchMode      `json:"mode"`
	Total   int             `json:"total"`
}

// SearchRepository provides the vector and full-text lookups behind search.
type SearchRepository interface {
	SearchMemoriesSemantic(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*SearchResult, error)
	SearchMemoriesLexical(ctx context.Context, query string, filters SearchFilters, limit int) ([]*SearchResult, error)
	SearchChunksSemantic(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*ChunkSearchResult, error)
	SearchChunksLexical(ctx context.Context, query string, filters SearchFilters, limit int) ([]*ChunkSearchResult, error)
}

// SearchService runs hybrid semantic+lexical retrieval over memories.
type SearchService struct {
	repo      SearchRepository
	embedding EmbeddingClient
}

func NewSearchService(repo SearchRepository, embedding EmbeddingClient) *SearchService {
	return &SearchService{repo: repo, embedding: embedding}
}

const defaultSearchLimit = 10

// Search executes a single search request.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptySearchQuery
	}
	if input.Filters.Project == "" {
		return nil, domain.ErrMissingRequiredField
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	mode := normalizeSearchMode(input.Mode)
	input.Query = query
	input.Mode = mode

	results, usedMode, err := s.searchOnce(ctx, input, limit)
	if err != nil {
		return nil, err
	}

	if len(results) > limit {
		results = results[:limit]
	}

	return &SearchOutput{
		Results: results,
		Mode:    usedMode,
		Total:   len(results),
	}, nil
}

func (s *SearchService) searchOnce(ctx context.Context, input SearchInput, limit int) ([]*SearchResult, SearchMode, error) {
	mode := input.Mode
	candidateLimit := candidateLimitFor(limit)
	lexicalOK := strings.TrimSpace(keywordQuery(input.Query)) != ""

	var embedding []float32
	if mode != SearchModeLexical {
		var err error
		embedding, err = s.embedding.GenerateEmbedding(ctx, input.Query)
		if err != nil {
			if mode == SearchModeSemantic {
				return nil, mode, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding provider unavailable", err)
			}
			// Hybrid degrades to lexical-only when the provider is down.
			log.Printf("search: embedding generation failed, falling back to lexical: %v", err)
			mode = SearchModeLexical
		}
	}

	var semanticChunks, lexicalChunks []*ChunkSearchResult
	var semanticDocs, lexicalDocs []*SearchResult
	var err error

	if mode != SearchModeLexical {
		semanticChunks, err = s.repo.SearchChunksSemantic(ctx, embedding, input.Filters, candidateLimit)
		if err != nil {
			return nil, mode, err
		}
		semanticDocs, err = s.repo.SearchMemoriesSemantic(ctx, embedding, input.Filters, candidateLimit)
		if err != nil {
			return nil, mode, err
		}
	}
	if mode != SearchModeSemantic && lexicalOK {
		lexicalChunks, err = s.repo.SearchChunksLexical(ctx, input.Query, input.Filters, candidateLimit)
		if err != nil {
			return nil, mode, err
		}
		lexicalDocs, err = s.repo.SearchMemoriesLexical(ctx, input.Query, input.Filters, candidateLimit)
		if err != nil {
			return nil, mode, err
		}
	}

	semantic := preferChunks(aggregateChunkResults(semanticChunks), semanticDocs)
	lexical := preferChunks(aggregateChunkResults(lexicalChunks), lexicalDocs)

	prepareResults(semantic)
	prepareResults(lexical)

	switch mode {
	case SearchModeSemantic:
		return mergeByScore(input.Filters, semantic), mode, nil
	case SearchModeLexical:
		return mergeByScore(input.Filters, lexical), mode, nil
	default:
		return mergeHybridResults(input.Filters, semantic, lexical), mode, nil
	}
}

// preferChunks keeps document-level hits only for memories without chunk hits,
// so a memory never appears twice in one candidate list.
func preferChunks(chunkLevel, docLevel []*SearchResult) []*SearchResult {
	if len(chunkLevel) == 0 {
		return docLevel
	}
	seen := make(map[string]struct{}, len(chunkLevel))
	for _, r := range chunkLevel {
		seen[r.ID] = struct{}{}
	}
	out := chunkLevel
	for _, r := range docLevel {
		if _, ok := seen[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func normalizeSearchMode(mode SearchMode) SearchMode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(SearchModeSemantic):
		return SearchModeSemantic
	case string(SearchModeLexical):
		return SearchModeLexical
	default:
		return SearchModeHybrid
	}
}

func candidateLimitFor(limit int) int {
	candidate := limit * defaultCandidateMultiplier
	if candidate < defaultMinCandidates {
		candidate = defaultMinCandidates
	}
	if candidate > defaultMaxCandidates {
		candidate = defaultMaxCandidates
	}
	return candidate
}
