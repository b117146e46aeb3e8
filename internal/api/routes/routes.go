package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/chainvest-service/chainvest_service/internal/api/handlers"
	"github.com/chainvest-service/chainvest_service/internal/api/middleware"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/di"
	"github.com/chainvest-service/chainvest_service/pkg/metrics"
	"github.com/chainvest-service/chainvest_service/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters for security
	if container.Config.Tracing.Enabled {
		router.Use(tracing.HTTPMiddleware())
	}
	router.Use(middleware.RequestID())
	router.Use(metrics.Middleware())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	healthHandlers := handlers.NewHealthHandlers(
		container.DB, container.Redis, container.Logger, container.Version)
	transactionHandlers := handlers.NewTransactionHandlers(
		container.Ledger, container.Scheduler, container.Logger)
	investmentHandlers := handlers.NewInvestmentHandlers(
		container.Engine, container.Portfolio, container.Logger)
	portfolioHandlers := handlers.NewPortfolioHandlers(
		container.Portfolio, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(
		container.Engine, container.Reaper, container.Logger)

	// Unauthenticated endpoints
	router.GET("/health", healthHandlers.Health)
	router.GET("/ready", healthHandlers.Ready)
	router.GET("/live", healthHandlers.Live)
	router.GET("/version", healthHandlers.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation (development only)
	if container.Config.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Authenticated API
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(container.Config, container.Logger))
	{
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandlers.CreateIntent)
			transactions.GET("", transactionHandlers.ListIntents)
			transactions.GET("/:id", transactionHandlers.GetIntent)
			transactions.POST("/:id/verify", transactionHandlers.VerifyIntent)
			transactions.DELETE("/:id/tracking", transactionHandlers.CancelTracking)
		}

		investments := v1.Group("/investments")
		{
			investments.GET("/plans", investmentHandlers.ListPlans)
			investments.POST("", investmentHandlers.OpenPosition)
			investments.GET("/:id", investmentHandlers.GetPosition)
		}

		v1.GET("/portfolio/summary", portfolioHandlers.GetSummary)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth())
		{
			admin.POST("/transactions/reap", adminHandlers.ReapStaleIntents)
			admin.POST("/investments/sweep", adminHandlers.SweepPositions)
		}
	}

	return router
}
