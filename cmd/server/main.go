package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/database"
	"github.com/apexqbank/apex-backend/internal/handler"
	"github.com/apexqbank/apex-backend/internal/identity"
	"github.com/apexqbank/apex-backend/internal/logger"
	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/apexqbank/apex-backend/internal/router"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/storage"
	"github.com/apexqbank/apex-backend/internal/validator"
	"github.com/apexqbank/apex-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting Apex QBank Backend")

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

	// ─── External Collaborators ────────────────────────────────────────
	idp := identity.NewClient(cfg.Identity, log)
	bucket := storage.NewBucket(cfg.Storage)

	// ─── Initialize Repositories ───────────────────────────────────────
	profileRepo := repository.NewProfileRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, idp, profileRepo, adminRepo, log)
	accessService := service.NewAccessService(profileRepo)
	adminService := service.NewAdminService(adminRepo)
	mediaService := service.NewMediaService(cfg, bucket, log)
	profileService := service.NewProfileService(profileRepo, attemptRepo, accessService, log)
	attemptService := service.NewAttemptService(attemptRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, mediaService, rdb, log)
	paymentService := service.NewPaymentService(paymentRepo, mediaService, log)
	settingService := service.NewSettingService(settingRepo, rdb, log)
	quizService := service.NewQuizService(accessService, questionRepo, attemptService, cfg.Quiz, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, adminService, log),
		Profile:  handler.NewProfileHandler(profileService, log),
		Quiz:     handler.NewQuizHandler(quizService, log),
		WS:       handler.NewWSHandler(quizService, log, cfg.AllowedOrigins),
		Attempt:  handler.NewAttemptHandler(attemptService, log),
		Payment:  handler.NewPaymentHandler(paymentService, settingService, log),
		Admin:    handler.NewAdminHandler(authService, profileService, log),
		Question: handler.NewQuestionHandler(questionService, log),
		Media:    handler.NewMediaHandler(mediaService, log),
		Setting:  handler.NewSettingHandler(settingService, log),
		System:   handler.NewSystemHandler(pool, rdb, quizService, log),
	}

	limiters := &router.Limiters{
		Auth: middleware.NewRateLimiter(30, time.Minute),
		Quiz: middleware.NewKeyedRateLimiter(120, time.Minute, middleware.ByLearner),
	}
	defer limiters.Auth.Stop()
	defer limiters.Quiz.Stop()

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := make(chan struct{})

	attemptWorker := worker.NewAttemptWorker(attemptRepo, rdb, log)
	go func() {
		attemptWorker.Start(workerCtx)
		close(workersDone)
	}()

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go quizService.StartJanitor(janitorCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, accessService, handlers, limiters, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Close live quiz sessions. Unsubmitted sessions are discarded.
	janitorCancel()
	quizService.Shutdown()

	// 3. Stop the attempt worker and let it flush its current batch.
	workerCancel()
	select {
	case <-workersDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Attempt worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
