//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoFileChunk(project, path string, index int, content string) *domain.RepoFile {
	return &domain.RepoFile{
		ID:         uuid.NewString(),
		Project:    project,
		Path:       path,
		Language:   "go",
		SHA256:     "c3ab8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2",
		ChunkIndex: index,
		Content:    content,
		IndexedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRepoFileRepository_ReplaceFileAndGetSHA(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRepoFileRepository(pool)

	chunks := []*domain.RepoFile{
		newRepoFileChunk("proj-idx", "internal/service/search.go", 0, "package service"),
		newRepoFileChunk("proj-idx", "internal/service/search.go", 1, "func Search() {}"),
	}
	require.NoError(t, repo.ReplaceFile(ctx, "proj-idx", "internal/service/search.go", chunks))

	sha, err := repo.GetFileSHA(ctx, "proj-idx", "internal/service/search.go")
	require.NoError(t, err)
	assert.Equal(t, chunks[0].SHA256, sha)

	// replacing drops the old chunks
	replacement := []*domain.RepoFile{
		newRepoFileChunk("proj-idx", "internal/service/search.go", 0, "package service // rewritten"),
	}
	replacement[0].SHA256 = "aaaa8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2"
	require.NoError(t, repo.ReplaceFile(ctx, "proj-idx", "internal/service/search.go", replacement))

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM repo_files WHERE project = $1 AND path = $2`,
		"proj-idx", "internal/service/search.go").Scan(&count))
	assert.Equal(t, 1, count)

	sha, err = repo.GetFileSHA(ctx, "proj-idx", "internal/service/search.go")
	require.NoError(t, err)
	assert.Equal(t, replacement[0].SHA256, sha)
}

func TestRepoFileRepository_GetFileSHA_Unindexed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRepoFileRepository(pool)

	sha, err := repo.GetFileSHA(ctx, "proj-idx", "does/not/exist.go")
	require.NoError(t, err)
	assert.Empty(t, sha)
}

func TestRepoFileRepository_UpdateEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRepoFileRepository(pool)

	chunk := newRepoFileChunk("proj-idx", "main.go", 0, "package main")
	require.NoError(t, repo.ReplaceFile(ctx, "proj-idx", "main.go", []*domain.RepoFile{chunk}))

	embedding := make([]float32, 768)
	embedding[0] = 0.5
	embedding[767] = -0.25
	require.NoError(t, repo.UpdateEmbedding(ctx, chunk.ID, embedding))

	retrieved, err := repo.GetByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "proj-idx", retrieved.Project)
	assert.Equal(t, "main.go", retrieved.Path)
	require.Len(t, retrieved.Embedding, 768)
	assert.InDelta(t, 0.5, retrieved.Embedding[0], 0.0001)
	assert.InDelta(t, -0.25, retrieved.Embedding[767], 0.0001)
}

func TestRepoFileRepository_UpdateEmbedding_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRepoFileRepository(pool)

	err := repo.UpdateEmbedding(ctx, uuid.NewString(), make([]float32, 768))
	assert.ErrorIs(t, err, domain.ErrRepoFileNotFound)
}
