//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agiletec-inc/mindbase/internal/api/handlers"
	"github.com/agiletec-inc/mindbase/internal/jobs"
	"github.com/agiletec-inc/mindbase/internal/repository"
	"github.com/agiletec-inc/mindbase/internal/server"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/agiletec-inc/mindbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 768

// hashEmbedder produces deterministic embeddings from token hashes.
// Texts sharing words land close together, which is enough to exercise
// the vector search path without a live Ollama.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(word))
		bucket := binary.BigEndian.Uint32(sum[:4]) % embeddingDims
		v[bucket] += 1
	}
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	inv := 1 / float32(1e-9+norm)
	for i := range v {
		v[i] *= inv
	}
	return v, nil
}

// Env holds the in-process stack backed by a pgvector container.
type Env struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	Pool      *pgxpool.Pool
	ServerURL string
	Closer    func()

	MemorySvc *service.MemoryService
	SearchSvc *service.SearchService
	IndexSvc  *service.RepoIndexService
	Worker    *jobs.Worker

	HTTPClient *http.Client
}

// SetupEnv starts Postgres, runs migrations, and wires the full service stack
// with a deterministic in-process embedder.
func SetupEnv(t *testing.T) *Env {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	memoryRepo := repository.NewMemoryRepository(pool)
	chunkRepo := repository.NewMemoryChunkRepository(pool)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	repoFileRepo := repository.NewRepoFileRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	embedder := hashEmbedder{}
	embeddingSvc := service.NewEmbeddingService(embedder, memoryRepo, chunkRepo, repoFileRepo)
	worker := jobs.NewWorker(jobs.NewEmbeddingWorker(jobRepo, embeddingSvc), 100*time.Millisecond)
	go worker.Start(ctx)

	memorySvc := service.NewMemoryServiceWithTx(memoryRepo, jobRepo, txRunner)
	searchSvc := service.NewSearchService(searchRepo, embedder)
	indexSvc := service.NewRepoIndexService(repoFileRepo, jobRepo)

	router := server.NewRouter(server.RouterConfig{
		MemoryHandler: handlers.NewMemoryHandler(memorySvc),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
	})
	srv := httptest.NewServer(router)

	env := &Env{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		ServerURL:  srv.URL,
		MemorySvc:  memorySvc,
		SearchSvc:  searchSvc,
		IndexSvc:   indexSvc,
		Worker:     worker,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.Closer = func() {
		srv.Close()
		worker.Stop()
		pool.Close()
		pgC.Terminate(ctx)
	}
	return env
}

// Cleanup releases all resources.
func (e *Env) Cleanup() {
	if e.Closer != nil {
		e.Closer()
	}
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Post sends a JSON POST and decodes the response envelope.
func (e *Env) Post(path string, body any) (int, *apiResponse) {
	payload, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	return readEnvelope(e.T, resp)
}

// Get sends a GET and decodes the response envelope.
func (e *Env) Get(path string) (int, *apiResponse) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	return readEnvelope(e.T, resp)
}

// Delete sends a DELETE and decodes the response envelope.
func (e *Env) Delete(path string) (int, *apiResponse) {
	req, err := http.NewRequest(http.MethodDelete, e.ServerURL+path, nil)
	if err != nil {
		e.T.Fatalf("failed to build DELETE request: %v", err)
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("DELETE %s failed: %v", path, err)
	}
	return readEnvelope(e.T, resp)
}

func readEnvelope(t *testing.T, resp *http.Response) (int, *apiResponse) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var envelope apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("failed to parse response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, &envelope
}

// WaitForJobs polls until no pending or processing embedding jobs remain.
func (e *Env) WaitForJobs(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var remaining int
		err := e.Pool.QueryRow(e.Ctx,
			`SELECT COUNT(*) FROM embedding_jobs WHERE status IN ('pending', 'processing')`,
		).Scan(&remaining)
		if err != nil {
			e.T.Fatalf("failed to count jobs: %v", err)
		}
		if remaining == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatal("timed out waiting for embedding jobs to drain")
}

// FailedJobCount returns the number of failed embedding jobs.
func (e *Env) FailedJobCount() int {
	var count int
	if err := e.Pool.QueryRow(e.Ctx,
		`SELECT COUNT(*) FROM embedding_jobs WHERE status = 'failed'`,
	).Scan(&count); err != nil {
		e.T.Fatalf("failed to count failed jobs: %v", err)
	}
	return count
}

func searchBody(project, query, mode string) map[string]any {
	return map[string]any{
		"project": project,
		"query":   query,
		"mode":    mode,
		"limit":   10,
	}
}
