package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/cache"
	litecfg "github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/narrative"
	"github.com/pcos-screening-server/internal/service"
	"github.com/pcos-screening-server/internal/store"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	*Server

	config *litecfg.LiteConfig
	store  store.Store
	cache  *cache.MemoryCache
	logger *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithStore sets a custom screening store.
func WithStore(st store.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = st
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, version string, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, err := litecfg.NewLogger(cfg.Logging())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	server.cache = cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)

	if server.store == nil {
		st, err := store.NewSQLiteStore(cfg.ScreeningDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create screening store: %w", err)
		}
		server.store = st
	}

	narrator := narrative.NewFromConfig(cfg.Narrative(), server.logger)
	classifier := service.NewClassifierService(server.logger, server.store, server.cache, narrator)
	tools := NewTools(classifier, server.store, cfg.ExportDir(), server.logger)

	server.Server = NewServer(version, tools, server.logger)

	server.logger.WithFields(logrus.Fields{
		"data_dir":     cfg.DataDir,
		"rule_version": service.RuleVersion,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP over stdio until ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.Run(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close screening store")
			return err
		}
	}
	return nil
}

// GetStore returns the screening store.
func (s *LiteServer) GetStore() store.Store {
	return s.store
}

// GetCache returns the memory cache.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}
