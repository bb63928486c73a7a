package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the pipeline on a schedule",
	Long: `Run the background scheduler until interrupted.

The scheduler triggers a pipeline run every scheduler.interval and prunes
expired summary cache entries. Task state and history are kept in the
local database, so a restarted daemon picks up where it left off.

With --http the HTTP API is served alongside the scheduler.`,
	RunE: runDaemon,
}

var daemonHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scheduled task results",
	Long: `List the most recent results of a scheduled task, newest first.

Pipeline results show the run they produced and that run's final status.`,
	Args: cobra.NoArgs,
	RunE: runDaemonHistory,
}

func init() {
	daemonHistoryCmd.Flags().String("task", domain.TaskIDPipelineRun, "task ID: pipeline_run or cache_prune")
	daemonHistoryCmd.Flags().Int("limit", 20, "maximum number of results (0 = all)")
	daemonCmd.AddCommand(daemonHistoryCmd)

	daemonCmd.Flags().Bool("http", false, "also serve the HTTP API")
	daemonCmd.Flags().String("addr", "", "HTTP listen address (default http.addr from config)")
	daemonCmd.Flags().Bool("no-mcp", false, "do not mount the MCP server at /mcp")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if withHTTP, _ := cmd.Flags().GetBool("http"); withHTTP {
		server, err := newHTTPServer(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = appConfig.HTTP.Addr
		}
		cmd.Printf("HTTP API listening on %s\n", addr)
		g.Go(func() error {
			return server.Run(ctx, addr)
		})
	}

	cmd.Printf("Scheduler started (pipeline every %s). Press Ctrl+C to stop.\n",
		appConfig.Scheduler.GetTaskConfig(domain.TaskIDPipelineRun).Interval)
	g.Go(func() error {
		return scheduler.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return scheduler.Stop()
	})

	err := g.Wait()
	cmd.Println("Scheduler stopped.")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runDaemonHistory(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	taskID, _ := cmd.Flags().GetString("task")
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := scheduler.History(cmd.Context(), taskID, limit)
	if err != nil {
		return fmt.Errorf("failed to load task history: %w", err)
	}
	if len(results) == 0 {
		cmd.Printf("No results recorded for %s.\n", taskID)
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Heading(fmt.Sprintf("%-19s  %8s  %-6s  %6s  %s", "STARTED", "DURATION", "RESULT", "ITEMS", "RUN")))
	for i := range results {
		r := &results[i]
		outcome := st.Success("ok    ")
		if !r.Success {
			outcome = st.Failure("failed")
		}
		run := r.RunID
		if r.RunStatus != "" {
			run += " (" + st.Status(r.RunStatus) + ")"
		}
		cmd.Printf("%-19s  %8s  %s  %6d  %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond),
			outcome,
			r.ItemsProcessed,
			run)
		if r.Error != "" {
			cmd.Println("  " + st.Muted(r.Error))
		}
	}
	return nil
}
