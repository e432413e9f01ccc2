package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rentradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager creates a new database manager with connection pooling
func NewManager(config *Config, log *logrus.Logger) (*Manager, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if config.LogLevel == "debug" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection with pooling
	db, err := gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Database and Redis connections established successfully")

	return &Manager{
		DB:     db,
		Redis:  redisClient,
		logger: log,
	}, nil
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.ActivityRecord{},
		&models.PreferenceSignal{},
		&models.RecommendationEntry{},
		&models.TrendRecord{},
		&models.SearchQueryLog{},
		&models.RecommendationFeedback{},
		&models.VehicleListing{},
		&models.PropertyListing{},
		&models.EquipmentListing{},
		&models.SystemHealth{},
	)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (m *Manager) PingRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Redis.Ping(ctx).Err()
}

// Cache implementation
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	RecommendationsKey = "recommendations:%d:%s:%d"
	TrendingKey        = "trending:%s:%s:%d"
	SuggestionsKey     = "suggestions:%s"
)

// CacheRecommendations caches a user's generated recommendation list.
func (c *Cache) CacheRecommendations(ctx context.Context, userID uint, kind string, limit int, recs interface{}, expiration time.Duration) error {
	key := fmt.Sprintf(RecommendationsKey, userID, kind, limit)

	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedRecommendations retrieves a cached recommendation list.
func (c *Cache) GetCachedRecommendations(ctx context.Context, userID uint, kind string, limit int, result interface{}) error {
	key := fmt.Sprintf(RecommendationsKey, userID, kind, limit)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// InvalidateRecommendations drops every cached list for the user. Limits and
// kind filters vary per caller so this scans the user's key prefix.
func (c *Cache) InvalidateRecommendations(ctx context.Context, userID uint) error {
	pattern := fmt.Sprintf("recommendations:%d:*", userID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// CacheTrending caches a trending list for a (kind, location) filter.
func (c *Cache) CacheTrending(ctx context.Context, kind, location string, limit int, items interface{}, expiration time.Duration) error {
	key := fmt.Sprintf(TrendingKey, kind, location, limit)

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal trending items: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedTrending retrieves a cached trending list.
func (c *Cache) GetCachedTrending(ctx context.Context, kind, location string, limit int, result interface{}) error {
	key := fmt.Sprintf(TrendingKey, kind, location, limit)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// CacheSuggestions caches a suggestion list keyed by a prefix hash.
func (c *Cache) CacheSuggestions(ctx context.Context, cacheKey string, suggestions []string, expiration time.Duration) error {
	key := fmt.Sprintf(SuggestionsKey, cacheKey)

	data, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedSuggestions retrieves a cached suggestion list.
func (c *Cache) GetCachedSuggestions(ctx context.Context, cacheKey string) ([]string, error) {
	key := fmt.Sprintf(SuggestionsKey, cacheKey)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var suggestions []string
	err = json.Unmarshal([]byte(data), &suggestions)
	return suggestions, err
}

// ClearAllCache clears all cache data
func (c *Cache) ClearAllCache(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}
