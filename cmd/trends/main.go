package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rentradar/backend/internal/config"
	"github.com/rentradar/backend/internal/database"
	"github.com/rentradar/backend/internal/repository"
	"github.com/rentradar/backend/internal/services"
	"github.com/rentradar/backend/pkg/utils"
)

var (
	date    = flag.String("date", "", "Day to aggregate as YYYY-MM-DD (default: today, UTC)")
	purge   = flag.Bool("purge-expired", false, "Also delete expired recommendation entries")
	timeout = flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
)

func main() {
	flag.Parse()

	logger := utils.GetLogger()

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	day := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -date, expected YYYY-MM-DD")
		}
		day = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)
	trendService := services.NewTrendService(repoManager.Activities, repoManager.Trends, cache, cfg.Engine, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.WithField("date", day.Format("2006-01-02")).Info("Recomputing trends")
	if err := trendService.RecomputeTrends(ctx, day); err != nil {
		logger.WithError(err).Fatal("Trend recompute finished with failures")
	}

	if *purge {
		purged, err := repoManager.Recommendations.PurgeAllExpired()
		if err != nil {
			logger.WithError(err).Error("Failed to purge expired recommendations")
		} else {
			logger.WithField("purged", purged).Info("Expired recommendations purged")
		}
	}

	logger.Info("Trend recompute completed")
}
