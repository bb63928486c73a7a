package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/source/file"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the clustering pipeline once",
	Long: `Cluster the most recent headlines and summarise each cluster.

The run embeds up to pipeline.max_headlines_per_run headlines no older than
pipeline.max_age, groups them into pipeline.k_clusters themes and asks the
configured model for a summary per theme and an executive overview.

A run whose summaries partly failed still succeeds; the missing clusters
are listed as warnings. Only one run can be active at a time.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringSlice("ingest", nil, "ingest these files before running")
	runCmd.Flags().Bool("json", false, "print the digest as JSON")
	runCmd.Flags().Bool("headlines", false, "list every headline under its cluster")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	if pipelineRunner == nil {
		return errors.New("pipeline service not configured")
	}
	if runService == nil {
		return errors.New("run service not configured")
	}

	files, err := cmd.Flags().GetStringSlice("ingest")
	if err != nil {
		return fmt.Errorf("getting ingest flag: %w", err)
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	withHeadlines, _ := cmd.Flags().GetBool("headlines")

	if len(files) > 0 {
		if headlineService == nil {
			return errors.New("headline service not configured")
		}
		for _, path := range files {
			src, err := file.New(path)
			if err != nil {
				return err
			}
			result, err := headlineService.IngestFrom(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			if !asJSON {
				cmd.Printf("%s: %s\n", src.Name(), formatIngestResult(result))
			}
		}
	}

	if !asJSON {
		cmd.Println("Running pipeline...")
	}
	run, err := pipelineRunner.RunNow(cmd.Context())
	if errors.Is(err, domain.ErrRunInProgress) {
		return fmt.Errorf("a pipeline run is already in progress (state %s)", pipelineRunner.State())
	}
	if err != nil {
		if run != nil {
			cmd.PrintErrf("Run %s ended as %s\n", run.ID, run.Status)
			for _, w := range run.Warnings {
				cmd.PrintErrf("  ! %s\n", w)
			}
		}
		return err
	}

	detail, err := runService.Get(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", run.ID, err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), detail.Digest())
	}
	cmd.Println()
	printDigest(cmd.OutOrStdout(), detail.Digest(), digestOptions{headlines: withHeadlines})
	return nil
}
