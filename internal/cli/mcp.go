package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constantino-dev/vecdb/internal/logging"
	"github.com/constantino-dev/vecdb/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start the Model Context Protocol (MCP) server.

This lets AI agents list, search and fill vecdb tables.

The server communicates over stdio using JSON-RPC.

Example usage with Claude Desktop:
  Add to claude_desktop_config.json:
  {
    "mcpServers": {
      "vecdb": {
        "command": "vecdb",
        "args": ["mcp", "-p", "/path/to/project"]
      }
    }
  }`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, cfg, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	serverCfg := mcp.DefaultConfig()
	serverCfg.Logger = logger
	server, err := mcp.NewServer(serverCfg, engine)
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
