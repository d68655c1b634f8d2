package repository

import (
	"context"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// MemoryChunkRepository handles persistence of chunked memory embeddings.
type MemoryChunkRepository struct {
	db dbtx
}

func NewMemoryChunkRepository(pool *pgxpool.Pool) *MemoryChunkRepository {
	return &MemoryChunkRepository{db: pool}
}

func NewMemoryChunkRepositoryWithTx(tx dbtx) *MemoryChunkRepository {
	return &MemoryChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a memory and inserts new ones.
func (r *MemoryChunkRepository) ReplaceChunks(ctx context.Context, memoryID string, chunks []domain.MemoryChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM memory_chunks WHERE memory_id = $1`, memoryID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO memory_chunks (memory_id, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.MemoryID,
			c.ChunkIndex,
			c.Content,
			embedding,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
