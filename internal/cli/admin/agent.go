package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/agiletec-inc/mindbase/internal/agent"
	"github.com/agiletec-inc/mindbase/internal/config"
	"github.com/agiletec-inc/mindbase/internal/database"
	"github.com/agiletec-inc/mindbase/internal/jobs"
	"github.com/agiletec-inc/mindbase/internal/mcpserver"
	"github.com/agiletec-inc/mindbase/internal/repository"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/agiletec-inc/mindbase/internal/storage"
	"github.com/spf13/cobra"
)

// AgentServeCmd returns the airisd serve command.
func AgentServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Airis agent server",
		Long:  "Serves the confidence-check, deep-research, and repo-index tools over stdio.",
		RunE:  runAgentServe,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runAgentServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	memoryRepo := repository.NewMemoryRepository(pool)
	chunkRepo := repository.NewMemoryChunkRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	repoFileRepo := repository.NewRepoFileRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	embeddingClient, closeCache, err := newEmbeddingClient(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// Repo indexing enqueues embedding jobs, so airisd runs its own worker.
	// Claiming uses FOR UPDATE SKIP LOCKED and is safe alongside mindbased.
	embeddingSvc := service.NewEmbeddingService(embeddingClient, memoryRepo, chunkRepo, repoFileRepo)
	embeddingWorker := jobs.NewWorker(jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc), workerPollInterval)
	go embeddingWorker.Start(ctx)

	memorySvc := service.NewMemoryServiceWithTx(memoryRepo, embeddingJobRepo, txRunner)
	searchSvc := service.NewSearchService(searchRepo, embeddingClient)

	var archiver agent.ReportArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure report bucket: %w", err)
		}
		archiver = s3Client
		log.Printf("report archive enabled (bucket: %s)", cfg.S3Bucket)
	}

	researcher := agent.NewResearcher(searchSvc, memorySvc, archiver)
	indexer := service.NewRepoIndexService(repoFileRepo, embeddingJobRepo)
	learning := agent.NewErrorLearning(memorySvc, searchSvc)

	mcpSrv := mcpserver.NewAirisServer(researcher, indexer, learning)
	log.Println("serving Airis agent tools on stdio")
	serveErr := mcpSrv.Serve()

	embeddingWorker.Stop()
	if serveErr != nil {
		return fmt.Errorf("stdio transport failed: %w", serveErr)
	}

	log.Println("agent server exited")
	return nil
}
