package domain

import "time"

// RepoFile is one chunk of an indexed repository file. Files longer than the
// chunking window produce multiple rows sharing Path and SHA256.
type RepoFile struct {
	ID         string
	Project    string
	Path       string
	Language   string
	SHA256     string
	ChunkIndex int
	Content    string
	Embedding  []float32
	IndexedAt  time.Time
}

// RepoIndexReport summarizes one airis_repo_index run.
type RepoIndexReport struct {
	Project      string    `json:"project"`
	Root         string    `json:"root"`
	FilesScanned int       `json:"files_scanned"`
	FilesIndexed int       `json:"files_indexed"`
	FilesSkipped int       `json:"files_skipped"`
	ChunksStored int       `json:"chunks_stored"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
