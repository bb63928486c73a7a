package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/newsdigest/internal/adapters/driving/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for triggering runs, reading run history and
ingesting headlines.

Endpoints:
  POST /api/v1/runs          run the pipeline now and return the digest
  GET  /api/v1/runs          list runs (?status=&since=&limit=)
  GET  /api/v1/runs/latest   digest of the most recent run
  GET  /api/v1/runs/{id}     digest of one run
  POST /api/v1/headlines     ingest headlines
  GET  /health               liveness and pipeline state

The MCP server is mounted at /mcp unless --no-mcp is given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default http.addr from config)")
	serveCmd.Flags().Bool("no-mcp", false, "do not mount the MCP server at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := newHTTPServer(cmd)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = appConfig.HTTP.Addr
	}
	cmd.Printf("HTTP API listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}

func newHTTPServer(cmd *cobra.Command) (*httpapi.Server, error) {
	if pipelineRunner == nil || runService == nil || headlineService == nil {
		return nil, errors.New("pipeline services not configured")
	}

	ports := httpapi.Ports{
		Pipeline:  pipelineRunner,
		Runs:      runService,
		Headlines: headlineService,
	}
	if noMCP, _ := cmd.Flags().GetBool("no-mcp"); !noMCP {
		mcpServer, err := newMCPServer()
		if err != nil {
			return nil, err
		}
		ports.MCP = mcpServer.Handler()
	}

	server, err := httpapi.NewServer(ports)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP server: %w", err)
	}
	return server, nil
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Pipeline:  pipelineRunner,
		Runs:      runService,
		Headlines: headlineService,
	})
}
