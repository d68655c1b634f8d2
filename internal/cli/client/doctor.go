package client

import (
	"context"
	"fmt"
	"time"

	"github.com/agiletec-inc/mindbase/internal/config"
	"github.com/agiletec-inc/mindbase/internal/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

const doctorTimeout = 5 * time.Second

// CheckResult is the outcome of a single diagnostic check.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// pingDatabase is a shim for tests.
var pingDatabase = func(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// DoctorCmd creates the doctor command.
func DoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check MindBase installation health",
		Long:  "Verifies that the database, Ollama, the embedding model, and docker are available.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runDoctor(cmd, cfg, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic information")

	return cmd
}

func runDoctor(cmd *cobra.Command, cfg *config.Config, verbose bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	results := runChecks(ctx, cfg)

	failed := 0
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAIL"
			failed++
		}
		cmd.Printf("[%s] %s\n", status, result.Name)
		if verbose && result.Details != "" {
			cmd.Printf("       %s\n", result.Details)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d checks failed", failed, len(results))
	}

	cmd.Printf("all %d checks passed\n", len(results))
	return nil
}

func runChecks(ctx context.Context, cfg *config.Config) []CheckResult {
	results := []CheckResult{checkDatabase(ctx, cfg)}

	ollamaClient := ollama.NewClientWithConfig(ollama.Config{
		URL:            cfg.OllamaURL,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        doctorTimeout,
	})
	results = append(results, checkOllama(ctx, cfg, ollamaClient))
	results = append(results, checkEmbeddingModel(ctx, cfg, ollamaClient))
	results = append(results, checkDocker())

	return results
}

func checkDatabase(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{Name: "database reachable", Details: cfg.DatabaseURL}
	if err := pingDatabase(ctx, cfg.DatabaseURL); err != nil {
		result.Details = err.Error()
		return result
	}
	result.Passed = true
	return result
}

func checkOllama(ctx context.Context, cfg *config.Config, client *ollama.Client) CheckResult {
	result := CheckResult{Name: "ollama reachable", Details: cfg.OllamaURL}
	if _, err := client.HasModel(ctx); err != nil {
		result.Details = err.Error()
		return result
	}
	result.Passed = true
	return result
}

func checkEmbeddingModel(ctx context.Context, cfg *config.Config, client *ollama.Client) CheckResult {
	result := CheckResult{Name: "embedding model available", Details: cfg.EmbeddingModel}
	ok, err := client.HasModel(ctx)
	if err != nil {
		result.Details = err.Error()
		return result
	}
	if !ok {
		result.Details = fmt.Sprintf("model %q not pulled (run: ollama pull %s)", cfg.EmbeddingModel, cfg.EmbeddingModel)
		return result
	}
	result.Passed = true
	return result
}

func checkDocker() CheckResult {
	result := CheckResult{Name: "docker present"}
	path, err := lookPath("docker")
	if err != nil {
		result.Details = "docker not found in PATH"
		return result
	}
	result.Passed = true
	result.Details = path
	return result
}
