// Command server runs the claims processing backend: the public REST API, the
// internal task-callback surface, and the background loops (outbox processor,
// zombie-case rescue).
//
// Wiring order: config → logging → database → observability → blob/LLM/tasks
// adapters → services → HTTP router → background loops → graceful shutdown.
//
//	@title                      Claims Backend API
//	@version                    1.0
//	@description                Insurance claim case processing: document upload, AI extraction, report generation, and the human review loop.
//	@BasePath                   /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/casefile-ai/claims-backend/docs"
	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/config"
	"github.com/casefile-ai/claims-backend/internal/extract"
	httpapi "github.com/casefile-ai/claims-backend/internal/http"
	"github.com/casefile-ai/claims-backend/internal/llm"
	"github.com/casefile-ai/claims-backend/internal/observability"
	"github.com/casefile-ai/claims-backend/internal/render"
	"github.com/casefile-ai/claims-backend/internal/repo"
	"github.com/casefile-ai/claims-backend/internal/services"
	"github.com/casefile-ai/claims-backend/internal/sysutil"
	"github.com/casefile-ai/claims-backend/internal/tasks"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup otel")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Blob storage
	var store blob.Store
	switch cfg.Blob.Backend {
	case "gcs":
		gcs, err := blob.NewGCSStore(ctx, cfg.Blob.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("open gcs bucket")
		}
		store = gcs
	default:
		log.Warn().Msg("using in-memory blob store; artifacts will not survive restarts")
		store = blob.NewMemoryStore()
	}

	// LLM provider
	provider, err := llm.NewGeminiProvider(ctx, cfg.LLM.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("init llm provider")
	}

	// Task registry and executor
	registry := tasks.NewRegistry()
	var (
		executor tasks.Executor
		local    *tasks.LocalExecutor
		verifier tasks.Verifier
	)
	switch cfg.Tasks.Mode {
	case "queue":
		qe, err := tasks.NewQueueExecutor(ctx, cfg.Tasks)
		if err != nil {
			log.Fatal().Err(err).Msg("init cloud tasks client")
		}
		defer qe.Close()
		executor = qe
		verifier = tasks.NewOIDCVerifier(cfg.Tasks.Audience, cfg.Tasks.AllowedEmails)
	default:
		local = tasks.NewLocalExecutor(registry)
		executor = local
	}

	// Services
	caseSvc := services.NewCaseService(db, store, executor, cfg.Blob.SignedURLTTL)
	versionSvc := services.NewVersionService(db, store, cfg.Blob.SignedURLTTL)
	outboxSvc := services.NewOutboxService(db, registry, cfg.Pipeline.OutboxBatchSize, cfg.Pipeline.OutboxInterval)
	fanInSvc := services.NewFanInService(db, outboxSvc)
	extractionSvc := services.NewExtractionService(db, store, extract.TextExtractor{}, fanInSvc, cfg.Pipeline.ExtractConcurrency)
	generationSvc := services.NewGenerationService(db, provider, render.MarkdownRenderer{}, store, versionSvc, services.GenerationConfig{
		Model:         cfg.LLM.Model,
		FallbackModel: cfg.LLM.FallbackModel,
		CacheTTL:      cfg.LLM.CacheTTL,
		Temperature:   cfg.LLM.Temperature,
		Retry: llm.RetryPolicy{
			MaxAttempts: cfg.LLM.MaxAttempts,
			BaseBackoff: cfg.LLM.BaseBackoff,
		},
	})
	recoverySvc := services.NewRecoveryService(db, cfg.Pipeline.RescueTimeout, cfg.Pipeline.RescueInterval)

	services.RegisterTaskHandlers(registry, extractionSvc)
	services.RegisterOutboxHandlers(registry, generationSvc)
	log.Info().Strs("tasks", registry.Names()).Msg("task handlers registered")

	// Background loops
	go outboxSvc.Run(ctx)
	go recoverySvc.Run(ctx)

	// HTTP
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Cases:        caseSvc,
		Versions:     versionSvc,
		FanIn:        fanInSvc,
		Recovery:     recoverySvc,
		TaskRegistry: registry,
		Verifier:     verifier,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if local != nil {
		// Let in-process tasks finish before the database handle goes away.
		local.Wait()
	}
	log.Info().Msg("bye")
}
