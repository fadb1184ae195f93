package router

import (
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/handler"
	"github.com/apexqbank/apex-backend/internal/logger"
	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Profile  *handler.ProfileHandler
	Quiz     *handler.QuizHandler
	WS       *handler.WSHandler
	Attempt  *handler.AttemptHandler
	Payment  *handler.PaymentHandler
	Admin    *handler.AdminHandler
	Question *handler.QuestionHandler
	Media    *handler.MediaHandler
	Setting  *handler.SettingHandler
	System   *handler.SystemHandler
}

// Limiters are created by the caller so their cleanup goroutines can be stopped on shutdown.
type Limiters struct {
	Auth *middleware.RateLimiter
	Quiz *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	accessService *service.AccessService,
	handlers *Handlers,
	limiters *Limiters,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.GinMiddleware(log, response.ContextKeyRequestID))
	router.Use(middleware.Brotli())

	router.GET("/health", middleware.NoStore(), handlers.System.Health)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	publicAPI.Use(middleware.CacheControl(300))
	{
		publicAPI.GET("/plans", handlers.Payment.ListPlans)
		publicAPI.GET("/levels", handlers.Profile.Levels)
		publicAPI.GET("/payments/instructions", handlers.Payment.Instructions)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/magic-link", limiters.Auth.Middleware(), handlers.Auth.RequestMagicLink)
		auth.POST("/callback", limiters.Auth.Middleware(), handlers.Auth.Callback)
		auth.POST("/admin/login", limiters.Auth.Middleware(), handlers.Auth.AdminLogin)

		auth.POST("/logout",
			middleware.RequireLearnerJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.Logout,
		)
		auth.GET("/me",
			middleware.RequireLearnerJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Profile.GetMe,
		)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Learner Group (JWT + Single Device) ─────────────────────────
	learnerAPI := router.Group("/api/v1")
	learnerAPI.Use(
		middleware.NoStore(),
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		learnerAPI.PUT("/profile", handlers.Profile.UpdateQuestionnaire)
		learnerAPI.GET("/dashboard", handlers.Profile.Dashboard)

		learnerAPI.POST("/payments/claims", handlers.Payment.CreateClaim)
		learnerAPI.GET("/payments/claims", handlers.Payment.ListMyClaims)
		learnerAPI.POST("/payments/claims/:id/proof", handlers.Payment.UploadProof)

		learnerAPI.GET("/attempts", handlers.Attempt.ListAttempts)
		learnerAPI.GET("/attempts/stats", handlers.Attempt.Stats)
		learnerAPI.GET("/attempts/:id", handlers.Attempt.GetAttempt)

		// Access is checked when a session starts. A running session stays
		// usable by its owner after expiry, like the stream.
		quiz := learnerAPI.Group("/quiz/sessions")
		quiz.Use(limiters.Quiz.Middleware())
		{
			quiz.POST("", middleware.RequireActiveAccess(accessService), handlers.Quiz.Start)
			quiz.GET("/:id", handlers.Quiz.Get)
			quiz.POST("/:id/next", handlers.Quiz.Advance)
			quiz.POST("/:id/previous", handlers.Quiz.Retreat)
			quiz.PUT("/:id/answers", handlers.Quiz.SelectAnswer)
			quiz.POST("/:id/reveal", handlers.Quiz.Reveal)
			quiz.POST("/:id/submit", handlers.Quiz.Submit)
			quiz.DELETE("/:id", handlers.Quiz.Close)
		}
	}

	// ─── 3. Question bank (JWT + Single Device + Paid Access) ───────────
	paidAPI := router.Group("/api/v1")
	paidAPI.Use(
		middleware.NoStore(),
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.RequireActiveAccess(accessService),
	)
	{
		paidAPI.GET("/subjects", handlers.Question.ListSubjects)
	}

	// ─── 4. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/quiz/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 5. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore(), middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)

		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.POST("/questions/import", handlers.Question.ImportQuestions)
		adminAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		adminAPI.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)
		adminAPI.POST("/questions/:id/image", handlers.Question.UploadImage)
		adminAPI.GET("/subjects", handlers.Question.ListSubjects)

		adminAPI.GET("/payments/claims", handlers.Payment.ListClaims)
		adminAPI.POST("/payments/claims/:id/approve", handlers.Payment.ApproveClaim)
		adminAPI.POST("/payments/claims/:id/reject", handlers.Payment.RejectClaim)

		adminAPI.GET("/learners", handlers.Admin.FindLearner)
		adminAPI.POST("/learners/:id/access", handlers.Admin.GrantAccess)
		adminAPI.DELETE("/learners/:id/session", handlers.Admin.ResetSession)

		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Setting.GetAllSettings)
			settingsGroup.PUT("", handlers.Setting.UpdateSettings)
		}

		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
		adminAPI.GET("/system/snapshot", handlers.System.Snapshot)
	}

	return router
}
