package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// latestRunAlias may be passed wherever a run ID is expected.
const latestRunAlias = "latest"

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline run history",
	Long:  `List, show and export persisted pipeline runs.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's digest",
	Long: `Show the executive summary and per-cluster summaries of a run.

Use "latest" as the run ID for the most recent run. --model prints the
clustering model snapshot (k, seed, inertia, centroids and assignments)
as JSON instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

var runsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent run's digest",
	RunE:  runRunsLatest,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's cluster summaries",
	Long: `Export the cluster summary table of a run as CSV or JSON.

The CSV has one row per cluster with the columns cluster_id, summary,
headlines_count, headlines and timestamp. Headlines are joined with " | ".`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsExport,
}

func init() {
	runsListCmd.Flags().String("status", "", "only runs in this state (completed, partially_failed, failed)")
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs (0 = all)")
	runsListCmd.Flags().Duration("since", 0, "only runs started within this duration, e.g. 48h")

	for _, c := range []*cobra.Command{runsShowCmd, runsLatestCmd} {
		c.Flags().Bool("json", false, "print the digest as JSON")
		c.Flags().Bool("headlines", false, "list every headline under its cluster")
	}
	runsShowCmd.Flags().Bool("model", false, "print the clustering model snapshot as JSON")

	runsExportCmd.Flags().StringP("format", "f", "csv", "output format: csv or json")
	runsExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsLatestCmd)
	runsCmd.AddCommand(runsExportCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}

	filter := domain.RunFilter{}
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		state, err := domain.ParseRunState(status)
		if err != nil {
			return err
		}
		filter.Status = state
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	runs, err := runService.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Heading(fmt.Sprintf("%-36s  %-19s  %-16s  %9s  %8s", "ID", "STARTED", "STATUS", "HEADLINES", "CLUSTERS")))
	for i := range runs {
		r := &runs[i]
		status := fmt.Sprintf("%-16s", r.Status)
		cmd.Printf("%-36s  %-19s  %s  %9d  %8d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			strings.Replace(status, r.Status.String(), st.Status(r.Status), 1),
			r.HeadlineCount,
			r.KUsed)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	detail, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	if model, _ := cmd.Flags().GetBool("model"); model {
		if detail.Run.Model == nil {
			return fmt.Errorf("run %s has no model snapshot", detail.Run.ID)
		}
		return writeJSON(cmd.OutOrStdout(), detail.Run.Model)
	}
	return showDigest(cmd, detail)
}

func runRunsLatest(cmd *cobra.Command, _ []string) error {
	detail, err := loadRun(cmd, latestRunAlias)
	if err != nil {
		return err
	}
	return showDigest(cmd, detail)
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported export format %q (use csv or json)", format)
	}

	detail, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	digest := detail.Digest()
	if format == "json" {
		return writeJSON(out, digest.Clusters)
	}
	return writeSummaryCSV(out, digest)
}

// writeSummaryCSV writes one row per cluster.
func writeSummaryCSV(w io.Writer, d driving.Digest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cluster_id", "summary", "headlines_count", "headlines", "timestamp"}); err != nil {
		return err
	}
	for _, c := range d.Clusters {
		ts := ""
		if !c.Timestamp.IsZero() {
			ts = c.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.Itoa(c.ClusterID),
			c.Summary,
			strconv.Itoa(c.HeadlinesCount),
			strings.Join(c.Headlines, " | "),
			ts,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func loadRun(cmd *cobra.Command, id string) (*driving.RunDetail, error) {
	if runService == nil {
		return nil, errors.New("run service not configured")
	}

	var (
		detail *driving.RunDetail
		err    error
	)
	if id == latestRunAlias {
		detail, err = runService.Latest(cmd.Context())
	} else {
		detail, err = runService.Get(cmd.Context(), id)
	}
	if errors.Is(err, domain.ErrNotFound) {
		if id == latestRunAlias {
			return nil, errors.New("no runs yet; start one with 'newsdigest run'")
		}
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return detail, nil
}

func showDigest(cmd *cobra.Command, detail *driving.RunDetail) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), detail.Digest())
	}
	withHeadlines, _ := cmd.Flags().GetBool("headlines")
	printDigest(cmd.OutOrStdout(), detail.Digest(), digestOptions{headlines: withHeadlines})
	return nil
}
