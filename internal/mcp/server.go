// Package mcp exposes story generation to MCP clients over stdio.
package mcp

import (
	"context"

	"github.com/Alexsuad/cuentix/pkg/database"

	mcp_server "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

type Server struct {
	server  *mcp_server.MCPServer
	logger  *zap.Logger
	handler *Handler
}

func NewServer(store database.StoryStore, pipeline Generator, logger *zap.Logger) (*Server, error) {
	mcpServer := mcp_server.NewMCPServer(
		"cuentix-server",
		"1.0.0",
		mcp_server.WithToolCapabilities(true),
		mcp_server.WithRecovery(),
	)

	s := &Server{
		server: mcpServer,
		logger: logger,
	}

	s.handler = NewHandler(s.server, store, pipeline, logger)
	s.handler.RegisterTools()

	return s, nil
}

// Start serves MCP over stdin/stdout and blocks until the stream closes.
func (s *Server) Start(ctx context.Context) error {
	if err := mcp_server.ServeStdio(s.server); err != nil {
		s.logger.Error("MCP server stopped", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) GetToolNames() []string {
	return s.handler.GetToolNames()
}
