package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/studymill/studymill/internal/api/handlers"
	"github.com/studymill/studymill/internal/config"
	"github.com/studymill/studymill/internal/database"
	"github.com/studymill/studymill/internal/dedup"
	"github.com/studymill/studymill/internal/extract"
	"github.com/studymill/studymill/internal/ingest"
	"github.com/studymill/studymill/internal/jobs"
	"github.com/studymill/studymill/internal/openai"
	"github.com/studymill/studymill/internal/pdftext"
	"github.com/studymill/studymill/internal/repository"
	"github.com/studymill/studymill/internal/retrieval"
	"github.com/studymill/studymill/internal/review"
	"github.com/studymill/studymill/internal/server"
	"github.com/studymill/studymill/internal/storage"
	"github.com/studymill/studymill/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the studymill ingestion and retrieval API server",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// MigrateCmd returns the migrate command, which applies pending migrations
// and exits.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runMigrations(cfg.DatabaseURL)
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
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

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	jobRepo := repository.NewEmbeddingJobRepository(pool)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("STUDYMILL_OPENAI_API_KEY is required")
	}
	aiClient := openai.NewClient(cfg.OpenAIAPIKey)

	orchestrator := ingest.NewOrchestrator(
		pdftext.NewClient(cfg.ExtractorURL),
		extract.NewExtractor(aiClient),
		dedup.NewDeduplicator(aiClient),
		review.NewReviewer(aiClient),
		aiClient,
		docRepo,
		chunkRepo,
	).WithConfig(ingest.Config{WriteBatchSize: cfg.WriteBatchSize})

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
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready, archiving uploads", cfg.S3Bucket)
		orchestrator = orchestrator.WithArchiver(s3Client)
	}

	var embeddingWorker *jobs.Worker
	if cfg.WorkerPollSeconds > 0 {
		processor := jobs.NewEmbeddingWorker(jobRepo, chunkRepo, aiClient)
		embeddingWorker = jobs.NewWorker(processor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	assembler := retrieval.NewAssembler(aiClient, chunkRepo)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(orchestrator, docRepo),
		ChunkHandler:    handlers.NewChunkHandler(chunkRepo),
		ContextHandler:  handlers.NewContextHandler(assembler),
		MaxBodyBytes:    cfg.MaxBodyBytes,
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
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate works over database/sql, not pgx pools
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
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
