package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/database"
	"github.com/hsscguru/hssc-guru-backend/internal/draft"
	"github.com/hsscguru/hssc-guru-backend/internal/handler"
	"github.com/hsscguru/hssc-guru-backend/internal/logger"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
	"github.com/hsscguru/hssc-guru-backend/internal/router"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
	"github.com/hsscguru/hssc-guru-backend/internal/session"
	"github.com/hsscguru/hssc-guru-backend/internal/validator"
	"github.com/hsscguru/hssc-guru-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting HSSC Guru Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	questionService := service.NewQuestionService(questionRepo)
	testService := service.NewTestService(testRepo, questionRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, draftRepo, statsRepo, rdb, log)
	importService := service.NewImportService(questionRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo, statsRepo)

	// ─── Initialize Session Manager ───────────────────────────────────
	draftStore := draft.NewStore(rdb, draftRepo, log)
	manager := session.NewManager(draftStore, attemptService, cfg.SubmitTimeout, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Test:      handler.NewTestHandler(testService, questionService),
		Session:   handler.NewSessionHandler(manager, testService),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Question:  handler.NewQuestionHandler(cfg, questionService, importService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		WS:        handler.NewWSHandler(manager, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	draftWorker := worker.NewDraftWorker(draftRepo, rdb, log)
	statsWorker := worker.NewStatsWorker(statsRepo, rdb, log)

	go draftWorker.Start(workerCtx)
	go statsWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Persist every in-flight session draft.
	manager.Close(shutdownCtx)

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
