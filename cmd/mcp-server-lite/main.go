// Package main provides the lightweight MCP entry point for the PCOS screening server.
// This version requires no external databases - uses in-memory caching and SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/mcp"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	// stdout carries the MCP protocol; the log package writes to stderr
	log.Printf("Starting PCOS screening MCP server (lite) %s", version)
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create lite MCP server
	server, err := mcp.NewLiteServer(cfg, version)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start MCP server
	if err := server.Start(ctx); err != nil {
		log.Printf("MCP server failed: %v", err)
		server.Close()
		os.Exit(1)
	}

	log.Println("PCOS screening MCP server (lite) stopped")
}
