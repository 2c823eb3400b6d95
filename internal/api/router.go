package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/api/handlers"
	apimiddleware "github.com/gridbeat/gridbeat-api/internal/api/middleware"
	"github.com/gridbeat/gridbeat-api/internal/config"
	"github.com/gridbeat/gridbeat-api/internal/llm"
	"github.com/gridbeat/gridbeat-api/internal/metrics"
	"github.com/gridbeat/gridbeat-api/internal/middleware"
	"github.com/gridbeat/gridbeat-api/internal/realtime"
	"github.com/gridbeat/gridbeat-api/internal/services"
	"gorm.io/gorm"
)

// Dependencies carries the long-lived components the router wires together.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Projects  *services.ProjectService
	Hub       *realtime.Hub
	Engine    *realtime.Engine
	Suggester llm.Suggester
	Metrics   *metrics.Client
	Version   string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS(deps.Config.CORSOrigin, deps.Config.IsProduction()))

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(deps.Version)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Auth routes (public)
	auth := router.Group("/api/auth")
	{
		authHandler := handlers.NewAuthHandler(deps.DB, deps.Config)
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWTAuth(deps.DB, deps.Config), authHandler.Me)
	}

	// Realtime channel (JWT via header, cookie or token query param)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.Engine)
	router.GET("/ws", middleware.JWTAuth(deps.DB, deps.Config), realtimeHandler.Connect)

	// Protected project routes (require JWT)
	projectHandler := handlers.NewProjectHandler(deps.DB, deps.Projects)
	exportHandler := handlers.NewExportHandler(projectHandler, deps.Metrics)
	suggestionHandler := handlers.NewSuggestionHandler(projectHandler, deps.Suggester)

	projects := router.Group("/api/projects")
	projects.Use(middleware.JWTAuth(deps.DB, deps.Config))
	{
		projects.GET("", projectHandler.List)
		projects.POST("", projectHandler.Create)
		projects.GET("/:id", projectHandler.Get)
		projects.PUT("/:id", projectHandler.Update)
		projects.DELETE("/:id", projectHandler.Delete)

		projects.GET("/:id/collaborators", projectHandler.ListCollaborators)
		projects.POST("/:id/collaborators", projectHandler.AddCollaborator)
		projects.DELETE("/:id/collaborators/:userId", projectHandler.RemoveCollaborator)

		projects.PUT("/:id/tracks/:trackId/events", projectHandler.ReplaceTrackEvents)

		projects.POST("/:id/suggestions", suggestionHandler.Suggest)

		projects.GET("/:id/export", exportHandler.Export)

		projects.GET("/:id/versions", projectHandler.ListVersions)
		projects.POST("/:id/versions/:versionId/restore", projectHandler.RestoreVersion)
	}

	return router
}
