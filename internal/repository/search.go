package repository

import (
	"context"
	"fmt"

	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SearchRepository implements vector and full-text retrieval over memories
// and their chunks.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// filterClause renders optional kind/tags predicates against an aliased
// memories table, appending bind args as it goes.
func filterClause(alias string, filters service.SearchFilters, args []interface{}) (string, []interface{}) {
	clause := ""
	if filters.Kind != "" {
		args = append(args, filters.Kind)
		clause += fmt.Sprintf(" AND %s.kind = $%d", alias, len(args))
	}
	if len(filters.Tags) > 0 {
		args = append(args, filters.Tags)
		clause += fmt.Sprintf(" AND %s.tags @> $%d", alias, len(args))
	}
	return clause, args
}

// SearchMemoriesSemantic ranks memories by their best chunk distance. It is
// the document-level fallback; per-chunk hits come from SearchChunksSemantic.
func (r *SearchRepository) SearchMemoriesSemantic(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]*service.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []interface{}{pgvector.NewVector(embedding), filters.Project}
	clause, args := filterClause("m", filters, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT m.id, m.kind, m.content, m.tags, m.updated_at,
		       MAX(1.0 / (1.0 + (c.embedding <=> $1)))::float4 AS score
		FROM memories m
		JOIN memory_chunks c ON c.memory_id = m.id
		WHERE m.project = $2 AND c.embedding IS NOT NULL%s
		GROUP BY m.id
		ORDER BY score DESC
		LIMIT $%d`, clause, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.SearchResult, 0)
	for rows.Next() {
		var result service.SearchResult
		if err := rows.Scan(&result.ID, &result.Kind, &result.Snippet, &result.Tags, &result.UpdatedAt, &result.Score); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// SearchMemoriesLexical runs Postgres full-text search over whole memories.
func (r *SearchRepository) SearchMemoriesLexical(ctx context.Context, query string, filters service.SearchFilters, limit int) ([]*service.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []interface{}{query, filters.Project}
	clause, args := filterClause("m", filters, args)
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT m.id, m.kind, m.content, m.tags, m.updated_at,
		       ts_rank(to_tsvector('english', m.content), websearch_to_tsquery('english', $1))::float4 AS score
		FROM memories m
		WHERE m.project = $2
		  AND to_tsvector('english', m.content) @@ websearch_to_tsquery('english', $1)%s
		ORDER BY score DESC
		LIMIT $%d`, clause, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.SearchResult, 0)
	for rows.Next() {
		var result service.SearchResult
		if err := rows.Scan(&result.ID, &result.Kind, &result.Snippet, &result.Tags, &result.UpdatedAt, &result.Score); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// SearchChunksSemantic returns the closest chunks by cosine distance.
func (r *SearchRepository) SearchChunksSemantic(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]*service.ChunkSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []interface{}{pgvector.NewVector(embedding), filters.Project}
	clause, args := filterClause("m", filters, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT c.id, c.memory_id, m.kind, m.tags, c.chunk_index, c.content, m.updated_at,
		       (1.0 / (1.0 + (c.embedding <=> $1)))::float4 AS score
		FROM memory_chunks c
		JOIN memories m ON m.id = c.memory_id
		WHERE m.project = $2 AND c.embedding IS NOT NULL%s
		ORDER BY c.embedding <=> $1
		LIMIT $%d`, clause, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// SearchChunksLexical runs full-text search at chunk granularity.
func (r *SearchRepository) SearchChunksLexical(ctx context.Context, query string, filters service.SearchFilters, limit int) ([]*service.ChunkSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []interface{}{query, filters.Project}
	clause, args := filterClause("m", filters, args)
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT c.id, c.memory_id, m.kind, m.tags, c.chunk_index, c.content, m.updated_at,
		       ts_rank(to_tsvector('english', c.content), websearch_to_tsquery('english', $1))::float4 AS score
		FROM memory_chunks c
		JOIN memories m ON m.id = c.memory_id
		WHERE m.project = $2
		  AND to_tsvector('english', c.content) @@ websearch_to_tsquery('english', $1)%s
		ORDER BY score DESC
		LIMIT $%d`, clause, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

func scanChunkRows(rows pgx.Rows) ([]*service.ChunkSearchResult, error) {
	results := make([]*service.ChunkSearchResult, 0)
	for rows.Next() {
		var result service.ChunkSearchResult
		if err := rows.Scan(&result.ChunkID, &result.MemoryID, &result.Kind, &result.Tags, &result.ChunkIndex, &result.Content, &result.UpdatedAt, &result.Score); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
