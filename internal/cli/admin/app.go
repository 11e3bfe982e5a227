package admin

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/database"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/openai"
	"github.com/cloo-solutions/docrag/internal/repository"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/cloo-solutions/docrag/internal/storage"
	"github.com/cloo-solutions/docrag/internal/telemetry"
)

// app holds the services shared by serve and ingest.
type app struct {
	pool      *pgxpool.Pool
	jobs      *repository.EmbeddingJobRepository
	ingestion *service.IngestionService
	documents *service.DocumentService
	query     *service.QueryService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("DOCRAG_OPENAI_API_KEY is required to embed chunks and queries")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, err
	}
	log.Println("connected to database")

	docRepo := repository.NewDocumentRepository(pool)
	decisionRepo := repository.NewDecisionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var sources service.SourceStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, cfg.S3Config())
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		sources = s3Client
	} else {
		log.Println("S3 not configured, original uploads will not be kept")
	}

	embeddingClient := openai.NewClientWithConfig(cfg.OpenAIConfig())
	embeddingSvc := service.NewEmbeddingService(embeddingClient, cfg.EmbeddingConfig())

	ingestionSvc := service.NewIngestionService(
		extract.New(),
		embeddingSvc,
		docRepo,
		decisionRepo,
		chunkRepo,
		txRunner,
		sources,
		cfg.ChunkingConfig(),
		cfg.IngestionConfig(),
	)
	documentSvc := service.NewDocumentService(docRepo, decisionRepo, chunkRepo, sources)
	querySvc := service.NewQueryService(
		embeddingClient,
		chunkRepo,
		chunkRepo,
		openai.NewGenerator(cfg.GeneratorConfig()),
		queryLogRepo,
		cfg.RetrievalConfig(),
	)

	return &app{
		pool:      pool,
		jobs:      jobRepo,
		ingestion: ingestionSvc,
		documents: documentSvc,
		query:     querySvc,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// initTelemetry enables Sentry when SENTRY_DSN is set. The returned func flushes pending events.
func initTelemetry() func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return func() {}
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
