// Package app assembles the PostgreSQL-backed screening service shared by
// the HTTP and MCP entry points.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/cache"
	"github.com/pcos-screening-server/internal/database"
	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/narrative"
	"github.com/pcos-screening-server/internal/repository"
	"github.com/pcos-screening-server/internal/service"
)

// Application holds the wired dependencies of a running server.
type Application struct {
	DB         *database.DB
	Repository *repository.ScreeningRepository
	Cache      domain.ResultCache
	Classifier *service.ClassifierService

	redis  *cache.RedisCache
	logger *logrus.Logger
}

// New connects to PostgreSQL, applies pending migrations when configured to,
// and builds the classifier service. Redis is optional; a failed connection
// is logged and the memory tier is used alone.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*Application, error) {
	dbConfig := database.ConfigFrom(cfg.Database)

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, dbConfig, cfg.Database.MigrationsPath, logger); err != nil {
			return nil, err
		}
	}

	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a := &Application{
		DB:         db,
		Repository: repository.NewScreeningRepository(db.Pool, logger),
		logger:     logger,
	}

	memory := cache.NewMemoryCache(cfg.Cache.MemoryMaxItems, cfg.Cache.MemoryTTL)
	a.Cache = memory
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable, using memory cache only")
		} else {
			a.redis = redisCache
			a.Cache = cache.NewTieredCache(memory, redisCache, logger)
		}
	}

	narrator := narrative.NewFromConfig(cfg.Narrative, logger)
	a.Classifier = service.NewClassifierService(logger, a.Repository, a.Cache, narrator)

	logger.WithFields(logrus.Fields{
		"rule_version": service.RuleVersion,
		"redis":        a.redis != nil,
		"narrative":    cfg.Narrative.BaseURL != "",
	}).Info("Application initialized")
	return a, nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, dbConfig database.Config, migrationsPath string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(dbConfig.URL(), migrationsPath, logger)
	if err != nil {
		return fmt.Errorf("creating migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// HealthChecks returns the dependency probes reported by /health.
func (a *Application) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"database": a.DB.Health,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// Close releases the database pool and the Redis client.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	a.DB.Close()
}
