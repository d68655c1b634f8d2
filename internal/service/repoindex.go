package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/telemetry"
)

const (
	// defaultMaxFileBytes caps how much of a single file gets indexed.
	defaultMaxFileBytes = 512 * 1024

	// binarySniffLen is how many leading bytes are checked for NUL.
	binarySniffLen = 8000
)

// skipDirs are directory names never descended into during indexing.
var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	".idea":        {},
	".vscode":      {},
}

// languageByExt maps file extensions to a language label stored with
// each indexed chunk.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".sh":    "shell",
	".sql":   "sql",
	".proto": "protobuf",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".tf":    "terraform",
}

// RepoIndexRepositoryInterface defines the repository interface for indexed repo files
type RepoIndexRepositoryInterface interface {
	GetFileSHA(ctx context.Context, project, path string) (string, error)
	ReplaceFile(ctx context.Context, project, path string, chunks []*domain.RepoFile) error
}

// RepoIndexService walks a repository tree and stores embeddable chunks
// of its source files.
type RepoIndexService struct {
	repoFileRepo     RepoIndexRepositoryInterface
	embeddingJobRepo EmbeddingJobRepositoryInterface
	uuidGen          UUIDGenerator
	chunkCfg         ChunkConfig
	maxFileBytes     int64
}

// NewRepoIndexService creates a new RepoIndexService instance
func NewRepoIndexService(repoFileRepo RepoIndexRepositoryInterface, embeddingJobRepo EmbeddingJobRepositoryInterface) *RepoIndexService {
	return &RepoIndexService{
		repoFileRepo:     repoFileRepo,
		embeddingJobRepo: embeddingJobRepo,
		uuidGen:          &DefaultUUIDGenerator{},
		chunkCfg: ChunkConfig{
			MaxChars:  2000,
			MinChars:  400,
			Overlap:   200,
			MaxChunks: 60,
		},
		maxFileBytes: defaultMaxFileBytes,
	}
}

// NewRepoIndexServiceWithUUIDGen creates a RepoIndexService with a custom UUID generator (for testing)
func NewRepoIndexServiceWithUUIDGen(repoFileRepo RepoIndexRepositoryInterface, embeddingJobRepo EmbeddingJobRepositoryInterface, uuidGen UUIDGenerator) *RepoIndexService {
	s := NewRepoIndexService(repoFileRepo, embeddingJobRepo)
	s.uuidGen = uuidGen
	return s
}

// IndexInput specifies what to index.
type IndexInput struct {
	Project string
	Root    string
}

// Index walks the tree under Root and stores chunks for every indexable
// file whose content changed since the last run. Unchanged files are
// skipped by comparing SHA-256 digests.
func (s *RepoIndexService) Index(ctx context.Context, input IndexInput) (*domain.RepoIndexReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "RepoIndexService.Index", telemetry.SpanAttributes{
		Project:   input.Project,
		Operation: "repo_index",
	})
	defer span.End()

	if input.Project == "" || input.Root == "" {
		return nil, domain.ErrMissingRequiredField
	}

	root, err := filepath.Abs(input.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	report := &domain.RepoIndexReport{
		Project:   input.Project,
		Root:      root,
		StartedAt: time.Now().UTC(),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are counted and skipped, not fatal.
			if d == nil || d.IsDir() {
				log.Printf("repo index: skipping unreadable directory %s: %v", path, walkErr)
				return nil
			}
			log.Printf("repo index: skipping unreadable file %s: %v", path, walkErr)
			report.FilesScanned++
			report.FilesSkipped++
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		report.FilesScanned++

		indexed, chunks, err := s.indexFile(ctx, input.Project, path, rel)
		if err != nil {
			return err
		}
		if indexed {
			report.FilesIndexed++
			report.ChunksStored += chunks
		} else {
			report.FilesSkipped++
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// readFile is a shim for tests.
var readFile = os.ReadFile

// indexFile stores chunks for one file. Returns false when the file was
// skipped (binary, oversized, unreadable, or unchanged).
func (s *RepoIndexService) indexFile(ctx context.Context, project, absPath, relPath string) (bool, int, error) {
	fi, err := os.Stat(absPath)
	if err != nil {
		log.Printf("repo index: skipping %s: %v", relPath, err)
		return false, 0, nil
	}
	if fi.Size() == 0 || fi.Size() > s.maxFileBytes {
		return false, 0, nil
	}

	data, err := readFile(absPath)
	if err != nil {
		log.Printf("repo index: skipping %s: %v", relPath, err)
		return false, 0, nil
	}
	if isBinary(data) {
		return false, 0, nil
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	stored, err := s.repoFileRepo.GetFileSHA(ctx, project, relPath)
	if err != nil {
		return false, 0, err
	}
	if stored == digest {
		return false, 0, nil
	}

	now := time.Now().UTC()
	language := languageByExt[strings.ToLower(filepath.Ext(relPath))]

	parts := chunkText(string(data), s.chunkCfg)
	chunks := make([]*domain.RepoFile, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, &domain.RepoFile{
			ID:         s.uuidGen.NewString(),
			Project:    project,
			Path:       relPath,
			Language:   language,
			SHA256:     digest,
			ChunkIndex: i,
			Content:    part,
			IndexedAt:  now,
		})
	}
	if len(chunks) == 0 {
		return false, 0, nil
	}

	if err := s.repoFileRepo.ReplaceFile(ctx, project, relPath, chunks); err != nil {
		return false, 0, err
	}

	for _, chunk := range chunks {
		job := domain.NewEmbeddingJobForRepoFile(s.uuidGen.NewString(), chunk.ID, now)
		if err := s.embeddingJobRepo.Create(ctx, job); err != nil {
			return false, 0, err
		}
	}

	return true, len(chunks), nil
}

func isBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
