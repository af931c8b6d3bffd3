package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pcos-screening-server/internal/app"
	"github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/mcp"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	// stdout carries the MCP protocol
	logging := cfg.Logging
	if logging.Output == "" || logging.Output == "stdout" {
		logging.Output = "stderr"
	}
	logger, err := config.NewLogger(logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	// Bulk export is only offered by the SQLite-backed lite server
	tools := mcp.NewTools(application.Classifier, nil, "", logger)
	mcpServer := mcp.NewServer(version, tools, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	// Start MCP server
	if err := mcpServer.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("PCOS screening MCP server stopped")
}
