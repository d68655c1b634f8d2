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

func setupMemoryForJob(ctx context.Context, t *testing.T, memoryRepo *MemoryRepository) *domain.Memory {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	m := &domain.Memory{
		ID:        uuid.NewString(),
		Project:   "proj-jobs",
		Kind:      domain.MemoryKindNote,
		Content:   "memory awaiting embedding",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, memoryRepo.Create(ctx, m))
	return m
}

func TestEmbeddingJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)

	job := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobRepo.Create(ctx, job))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
	assert.Equal(t, m.ID, retrieved.MemoryID)
	assert.Empty(t, retrieved.RepoFileID)
	assert.Equal(t, domain.EmbeddingJobStatusPending, retrieved.Status)
	assert.Zero(t, retrieved.Retries)
	assert.Empty(t, retrieved.Error)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewEmbeddingJobRepository(pool)

	_, err := jobRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)

	base := time.Now().UTC().Truncate(time.Microsecond)
	job1 := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, base)
	job2 := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, base.Add(time.Second))
	require.NoError(t, jobRepo.Create(ctx, job1))
	require.NoError(t, jobRepo.Create(ctx, job2))

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, job1.ID, claimed[0].ID)
	assert.Equal(t, job2.ID, claimed[1].ID)
	for _, job := range claimed {
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, job.Status)
	}

	// already claimed jobs are not returned again
	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestEmbeddingJobRepository_ClaimPending_Limit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		job := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, jobRepo.Create(ctx, job))
	}

	claimed, err := jobRepo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}

func TestEmbeddingJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)
	job := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusCompleted, retrieved.Status)
	require.NotNil(t, retrieved.ProcessedAt)
	assert.WithinDuration(t, time.Now().UTC(), *retrieved.ProcessedAt, time.Minute)
}

func TestEmbeddingJobRepository_UpdateStatus_FailedKeepsError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)
	job := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "max retries exceeded: provider down"))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusFailed, retrieved.Status)
	assert.Equal(t, "max retries exceeded: provider down", retrieved.Error)
	assert.NotNil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	memoryRepo := NewMemoryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	m := setupMemoryForJob(ctx, t, memoryRepo)
	job := domain.NewEmbeddingJobForMemory(uuid.NewString(), m.ID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, retrieved.Retries)
}
