package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/pagination"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MemoryRepository struct {
	db dbtx
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: pool}
}

func NewMemoryRepositoryWithTx(tx pgx.Tx) *MemoryRepository {
	return &MemoryRepository{db: tx}
}

func (r *MemoryRepository) Create(ctx context.Context, m *domain.Memory) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO memories (id, project, kind, content, tags, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Project, m.Kind, m.Content, m.Tags, m.Metadata, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	var m domain.Memory
	err := r.db.QueryRow(ctx,
		`SELECT id, project, kind, content, tags, metadata, created_at, updated_at
		 FROM memories WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Project, &m.Kind, &m.Content, &m.Tags, &m.Metadata, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemoryNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MemoryRepository) ListWithCursor(ctx context.Context, project string, kind domain.MemoryKind, cursor *pagination.Cursor, limit int) (*service.MemoryPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, project, kind, content, tags, metadata, created_at, updated_at
		 FROM memories WHERE project = $1`
	args := []any{project}

	if kind != "" {
		args = append(args, kind)
		query += ` AND kind = $2`
	}
	if cursor != nil {
		query += fmt.Sprintf(` AND (updated_at, id) < ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY updated_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanMemoryRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.MemoryPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Delete removes a memory; its chunks and embedding jobs go with it via
// ON DELETE CASCADE.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMemoryNotFound
	}
	return nil
}

func scanMemoryRows(rows pgx.Rows) ([]*domain.Memory, error) {
	var items []*domain.Memory
	for rows.Next() {
		var m domain.Memory
		if err := rows.Scan(&m.ID, &m.Project, &m.Kind, &m.Content, &m.Tags, &m.Metadata, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
