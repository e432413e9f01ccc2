package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rentradar/backend/internal/api/handlers"
	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/health"
	"github.com/rentradar/backend/internal/middleware"
	"github.com/rentradar/backend/internal/migration"
	"github.com/rentradar/backend/internal/repository"
	"github.com/rentradar/backend/internal/services"
	"github.com/rentradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := utils.GetLogger()

	// .env is optional in containerized deployments
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	logger.Info("Starting RentRadar personalization service...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbConfig := &database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}

	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	// Run migrations before serving traffic
	runner := migration.NewRunner(dbManager, logger)
	if err := runner.RunMigrations("migrations"); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)

	// Engine services
	preferenceService := services.NewPreferenceService(repoManager.Preferences, repoManager.Listings, cfg.Engine, logger)
	trackerService := services.NewTrackerService(repoManager.Activities, preferenceService, logger)
	similarityService := services.NewSimilarityService(repoManager.Activities, repoManager.Listings, cfg.Engine, logger)
	collaborativeService := services.NewCollaborativeService(repoManager.Activities, cfg.Engine, logger)
	trendService := services.NewTrendService(repoManager.Activities, repoManager.Trends, cache, cfg.Engine, logger)
	recommendationService := services.NewRecommendationService(
		collaborativeService,
		similarityService,
		preferenceService,
		repoManager.Activities,
		repoManager.Listings,
		repoManager.Trends,
		repoManager.Recommendations,
		cache,
		cfg.Engine,
		logger,
	)
	feedbackService := services.NewFeedbackService(repoManager.Recommendations, repoManager.Feedback, logger)
	searchService := services.NewSearchService(repoManager.SearchLogs, repoManager.Listings, cache, cfg.Engine, logger)

	// Handlers
	trackingHandler := handlers.NewTrackingHandler(trackerService, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService, feedbackService, logger)
	trendingHandler := handlers.NewTrendingHandler(trendService, logger)

	// Health monitoring
	checker := health.NewChecker(dbManager, repoManager.SystemHealth, logger)
	healthCtx, cancelHealth := context.WithCancel(context.Background())
	defer cancelHealth()
	go checker.PeriodicHealthCheck(healthCtx, 30*time.Second)

	router := setupRouter(logger)

	router.GET("/health", func(c *gin.Context) {
		overall := checker.CheckAll()
		status := http.StatusOK
		if overall.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, overall)
	})

	api := router.Group("/api")
	{
		api.POST("/track", trackingHandler.HandleTrack)

		api.POST("/search/log", searchHandler.HandleLogSearch)
		api.POST("/search/:id/success", searchHandler.HandleSearchSuccess)
		api.GET("/search/suggestions", searchHandler.HandleSearchSuggestions)

		api.GET("/recommendations", recommendationHandler.HandleGetRecommendations)
		api.POST("/recommendations/generate", recommendationHandler.HandleGenerate)
		api.POST("/recommendations/:id/viewed", recommendationHandler.HandleMarkViewed)
		api.POST("/recommendations/:id/clicked", recommendationHandler.HandleMarkClicked)
		api.POST("/recommendations/:id/converted", recommendationHandler.HandleMarkConverted)
		api.POST("/recommendations/:id/feedback", recommendationHandler.HandleFeedback)

		api.GET("/trending", trendingHandler.HandleTrending)
		api.POST("/trending/recompute", trendingHandler.HandleRecompute)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced server shutdown")
	}
	logger.Info("Server stopped")
}

func setupRouter(logger *logrus.Logger) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(300)
	router.Use(rateLimiter.RateLimit())

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString("request_id"),
		}).Info("Request handled")
	}
}
