// Package mcp exposes vecdb tables as Model Context Protocol tools.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the core engine directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/constantino-dev/vecdb/internal/core"
)

// Config configures the MCP server
type Config struct {
	// Name is the server implementation name (default: "vecdb")
	Name string

	// Version is the server version (default: "0.1.0")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Name:    "vecdb",
		Version: "0.1.0",
		Logger:  zap.NewNop(),
	}
}

// Server serves the engine's tables over MCP
type Server struct {
	mcp    *mcp.Server
	engine *core.Engine
	logger *zap.Logger
}

// NewServer creates a new MCP server and registers its tools
func NewServer(cfg *Config, engine *core.Engine) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		engine: engine,
		logger: cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves requests over stdio until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_tables",
		Description: "List vecdb tables with their columns, row counts and embedding functions.",
	}, s.listTables)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_table",
		Description: "Nearest-neighbour search in a table. Pass a text query to embed it with the column's embedding function, or a raw vector.",
	}, s.searchTable)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_rows",
		Description: "Insert rows into a table. Vector columns left empty are computed by the table's embedding functions.",
	}, s.addRows)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_providers",
		Description: "List the registered embedding providers.",
	}, s.listProviders)
}
