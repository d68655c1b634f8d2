package repository

import (
	"context"
	"errors"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type RepoFileRepository struct {
	db dbtx
}

func NewRepoFileRepository(pool *pgxpool.Pool) *RepoFileRepository {
	return &RepoFileRepository{db: pool}
}

func NewRepoFileRepositoryWithTx(tx pgx.Tx) *RepoFileRepository {
	return &RepoFileRepository{db: tx}
}

func (r *RepoFileRepository) GetByID(ctx context.Context, id string) (*domain.RepoFile, error) {
	var file domain.RepoFile
	var language pgtype.Text
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, project, path, language, sha256, chunk_index, content, embedding, indexed_at
		 FROM repo_files WHERE id = $1`,
		id,
	).Scan(&file.ID, &file.Project, &file.Path, &language, &file.SHA256, &file.ChunkIndex, &file.Content, &embedding, &file.IndexedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRepoFileNotFound
		}
		return nil, err
	}
	if language.Valid {
		file.Language = language.String
	}
	if embedding != nil {
		file.Embedding = embedding.Slice()
	}
	return &file, nil
}

// GetFileSHA returns the stored content digest for a file, or empty string
// when the file has never been indexed.
func (r *RepoFileRepository) GetFileSHA(ctx context.Context, project, path string) (string, error) {
	var sha string
	err := r.db.QueryRow(ctx,
		`SELECT sha256 FROM repo_files WHERE project = $1 AND path = $2 LIMIT 1`,
		project, path,
	).Scan(&sha)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return sha, nil
}

// ReplaceFile swaps out all chunks of one file in a single statement batch.
// Embeddings are left NULL; the worker fills them in asynchronously.
func (r *RepoFileRepository) ReplaceFile(ctx context.Context, project, path string, chunks []*domain.RepoFile) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM repo_files WHERE project = $1 AND path = $2`,
		project, path,
	); err != nil {
		return err
	}

	for _, chunk := range chunks {
		indexedAt := chunk.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now().UTC()
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO repo_files (id, project, path, language, sha256, chunk_index, content, indexed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.ID, project, path, nullableString(chunk.Language), chunk.SHA256, chunk.ChunkIndex, chunk.Content, indexedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *RepoFileRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE repo_files SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRepoFileNotFound
	}
	return nil
}
