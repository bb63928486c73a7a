package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Tools:
  run_pipeline      cluster and summarise recent headlines now
  latest_digest     the digest of the most recent run
  ingest_headlines  add headlines to the store

Resources:
  digest://runs/latest   digest of the most recent run (JSON)
  digest://runs/{runId}  digest of a specific run (JSON)

Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  newsdigest mcp

  # HTTP mode (for MCP Inspector, remote access)
  newsdigest mcp --port 8081

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "newsdigest": {
        "command": "/path/to/newsdigest",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
