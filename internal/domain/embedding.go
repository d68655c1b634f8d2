package domain

import "time"

// EmbeddingJobStatus represents the status of an embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// IsValidEmbeddingJobStatus reports whether status is one of the accepted values.
func IsValidEmbeddingJobStatus(status EmbeddingJobStatus) bool {
	switch status {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}

// EmbeddingJob tracks async embedding generation for a memory or an indexed
// repository file. Exactly one of MemoryID and RepoFileID is set.
type EmbeddingJob struct {
	ID          string
	MemoryID    string
	RepoFileID  string
	Status      EmbeddingJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEmbeddingJobForMemory creates a pending job for a memory.
func NewEmbeddingJobForMemory(id, memoryID string, now time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:        id,
		MemoryID:  memoryID,
		Status:    EmbeddingJobStatusPending,
		CreatedAt: now,
	}
}

// NewEmbeddingJobForRepoFile creates a pending job for a repository file.
func NewEmbeddingJobForRepoFile(id, repoFileID string, now time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:         id,
		RepoFileID: repoFileID,
		Status:     EmbeddingJobStatusPending,
		CreatedAt:  now,
	}
}
