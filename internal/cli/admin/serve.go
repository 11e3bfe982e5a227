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

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/database"
	"github.com/cloo-solutions/docrag/internal/jobs"
	"github.com/cloo-solutions/docrag/internal/server"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docrag API server and the background embedding worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", defaultMigrationsPath, "Directory holding the SQL migrations")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		migrationsPath, _ := cmd.Flags().GetString("migrations")
		if err := database.MigrateUp(cfg.DatabaseURL, migrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	embeddingWorker := jobs.NewWorker("embedding", jobs.NewEmbeddingWorker(a.jobs, a.ingestion), cfg.WorkerPollInterval)
	go embeddingWorker.Start(ctx)

	var authValidator middleware.AuthValidator
	if cfg.APIKey != "" {
		authValidator = middleware.NewStaticKeyValidator(cfg.APIKey)
	} else {
		log.Println("DOCRAG_API_KEY not set, API authentication disabled")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit {
		limiter = middleware.NewRateLimiter()
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   authValidator,
		RateLimiter:     limiter,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		HealthHandler:   handlers.NewHealthHandler(a.pool),
		DocumentHandler: handlers.NewDocumentHandler(a.ingestion, a.documents),
		QueryHandler:    handlers.NewQueryHandler(a.query),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	embeddingWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
