package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/handler"
	"github.com/hsscguru/hssc-guru-backend/internal/middleware"
	"github.com/hsscguru/hssc-guru-backend/internal/response"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Test      *handler.TestHandler
	Session   *handler.SessionHandler
	Attempt   *handler.AttemptHandler
	Question  *handler.QuestionHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware runs globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Auth Group (Public, Rate Limited) ─────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── User Group (JWT + Active Session) ─────────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckActiveSession(authService),
	)
	{
		userAPI.GET("/topics", handlers.Test.ListTopics)
		userAPI.GET("/tests", handlers.Test.ListTests)
		userAPI.GET("/tests/:id", handlers.Test.GetTest)
		userAPI.GET("/tests/:id/paper", handlers.Test.GetPaper)
		userAPI.POST("/practice", handlers.Test.StartPractice)

		userAPI.POST("/tests/:id/session", handlers.Session.StartSession)
		userAPI.GET("/tests/:id/session", handlers.Session.GetSession)
		userAPI.POST("/tests/:id/session/events", handlers.Session.ApplyEvent)
		userAPI.POST("/tests/:id/session/submit", handlers.Session.SubmitSession)

		userAPI.GET("/attempts", handlers.Attempt.ListAttempts)
		userAPI.GET("/attempts/:id", handlers.Attempt.GetResult)
		userAPI.GET("/stats/topics", handlers.Attempt.GetTopicStats)
		userAPI.GET("/dashboard", handlers.Dashboard.GetUserDashboard)
	}

	// ─── WebSocket Group (WS Auth via query token) ─────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/tests/:id/stream", handlers.WS.SessionStream)
	}

	// ─── Admin Group (Admin JWT) ───────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetAdminDashboard)

		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/questions", handlers.Question.AddQuestion)
		adminAPI.POST("/questions/upload", handlers.Question.UploadQuestions)

		adminAPI.POST("/tests", handlers.Test.CreateTest)
		adminAPI.PUT("/tests/:id", handlers.Test.UpdateTest)
		adminAPI.DELETE("/tests/:id", handlers.Test.DeleteTest)
		adminAPI.GET("/tests/:id/questions", handlers.Test.ListTestQuestions)
		adminAPI.PUT("/tests/:id/questions", handlers.Test.AttachQuestions)
	}

	return router
}
