package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agiletec-inc/mindbase/internal/api/handlers"
	"github.com/agiletec-inc/mindbase/internal/config"
	"github.com/agiletec-inc/mindbase/internal/database"
	"github.com/agiletec-inc/mindbase/internal/jobs"
	"github.com/agiletec-inc/mindbase/internal/mcpserver"
	"github.com/agiletec-inc/mindbase/internal/repository"
	"github.com/agiletec-inc/mindbase/internal/server"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/spf13/cobra"
)

const workerPollInterval = 10 * time.Second

// ServeCmd returns the mindbased serve command.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MindBase server",
		Long:  "Starts the MindBase MCP server on stdio plus the HTTP surface on PORT.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("http-only", false, "Serve only the HTTP surface (no MCP stdio transport)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

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

	embeddingSvc := service.NewEmbeddingService(embeddingClient, memoryRepo, chunkRepo, repoFileRepo)
	embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
	embeddingWorker := jobs.NewWorker(embeddingProcessor, workerPollInterval)
	go embeddingWorker.Start(ctx)
	log.Printf("embedding worker started (provider: %s)", cfg.EmbeddingProvider)

	memorySvc := service.NewMemoryServiceWithTx(memoryRepo, embeddingJobRepo, txRunner)
	searchSvc := service.NewSearchService(searchRepo, embeddingClient)

	router := server.NewRouter(server.RouterConfig{
		MemoryHandler: handlers.NewMemoryHandler(memorySvc),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stdioDone := make(chan error, 1)
	httpOnly, _ := cmd.Flags().GetBool("http-only")
	if !httpOnly {
		mcpSrv := mcpserver.NewMindBaseServer(memorySvc, searchSvc)
		go func() {
			log.Println("serving MCP tools on stdio")
			stdioDone <- mcpSrv.Serve()
		}()
	}

	select {
	case <-quit:
		log.Println("shutting down...")
	case err := <-stdioDone:
		if err != nil {
			log.Printf("stdio transport closed: %v", err)
		} else {
			log.Println("stdio transport closed")
		}
	}

	embeddingWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
