package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// ServerName identifies this server to MCP clients.
const ServerName = "pcos-screening-server"

// Server is an MCP server exposing the screening tools over stdio.
type Server struct {
	mcpServer *mcp.Server
	tools     *Tools
	logger    *logrus.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(version string, tools *Tools, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}
	mcpServer := mcp.NewServer(serverInfo, nil)
	tools.Register(mcpServer)

	return &Server{
		mcpServer: mcpServer,
		tools:     tools,
		logger:    logger,
	}
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP over transport.
func (s *Server) RunTransport(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
