// Package admin implements the daemon serve commands for mindbased and airisd.
package admin

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/agiletec-inc/mindbase/internal/cache"
	"github.com/agiletec-inc/mindbase/internal/config"
	"github.com/agiletec-inc/mindbase/internal/ollama"
	"github.com/agiletec-inc/mindbase/internal/openai"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/agiletec-inc/mindbase/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const embeddingCacheEntries = 4096

// initTelemetry initializes Sentry when SENTRY_DSN is configured.
// The returned shutdown function flushes pending events.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

// newEmbeddingClient builds the configured embedding provider wrapped in a
// ristretto query cache.
func newEmbeddingClient(cfg *config.Config) (service.EmbeddingClient, func(), error) {
	var provider cache.EmbeddingClient
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		provider = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	default:
		provider = ollama.NewClientWithConfig(ollama.Config{
			URL:                 cfg.OllamaURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	}

	cached, err := cache.NewEmbeddingCache(provider, embeddingCacheEntries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return cached, cached.Close, nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
