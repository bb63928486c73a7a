package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/adapters/driving/inbox"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest headline files dropped into a directory",
	Long: `Watch a directory and ingest every headline file written to it.

Files already in the directory are ingested first. Handled files are moved
to processed/ or, when they cannot be parsed, to failed/. With --run a
pipeline run is started after each file; files arriving while a run is
active are ingested and picked up by the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("run", false, "run the pipeline after each ingested file")
	watchCmd.Flags().Duration("settle", inbox.DefaultSettle, "how long a file must be unchanged before it is read")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if headlineService == nil {
		return errors.New("headline service not configured")
	}
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New(dir + " is not a directory")
	}

	runAfter, _ := cmd.Flags().GetBool("run")
	settle, _ := cmd.Flags().GetDuration("settle")
	if runAfter && pipelineRunner == nil {
		return errors.New("pipeline service not configured")
	}

	log := logger.With("watch")
	onIngested := func(ctx context.Context, path string, result domain.IngestResult) {
		cmd.Printf("%s: %s\n", path, formatIngestResult(result))
		if !runAfter || result.Accepted == 0 {
			return
		}
		run, err := pipelineRunner.RunNow(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			log.InfoContext(ctx, "run already active, headlines wait for the next one", "file", path)
		case err != nil:
			log.ErrorContext(ctx, "pipeline run failed", "file", path, "error", err)
		default:
			cmd.Printf("Run %s %s (%d clusters)\n", run.ID, run.Status, run.KUsed)
		}
	}

	w := inbox.New(dir, headlineService,
		inbox.WithSettle(settle),
		inbox.WithOnIngested(onIngested))
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return w.Run(cmd.Context())
}
