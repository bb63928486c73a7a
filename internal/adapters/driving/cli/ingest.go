package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/source/file"
	"github.com/custodia-labs/newsdigest/internal/adapters/driven/source/sample"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add headlines to the store",
	Long: `Read headlines from files and add them to the headline store.

Supported formats are chosen by extension:
  .jsonl, .ndjson  one JSON object per line
  .json            an array, or an object with a "headlines" array
  .csv             a header row naming text, source, timestamp and url columns
  .yaml, .yml      a sequence, or a mapping with a "headlines" sequence

Headlines already in the store (same text and source) are counted as
duplicates and skipped. Use --sample to load the built-in demo headlines.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("sample", 0, "also ingest this many built-in sample headlines")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if headlineService == nil {
		return errors.New("headline service not configured")
	}

	sampleCount, err := cmd.Flags().GetInt("sample")
	if err != nil {
		return fmt.Errorf("getting sample flag: %w", err)
	}
	if len(args) == 0 && sampleCount <= 0 {
		return errors.New("nothing to ingest: pass one or more files or --sample N")
	}

	var sources []driven.HeadlineSource
	for _, path := range args {
		src, err := file.New(path)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	if sampleCount > 0 {
		sources = append(sources, sample.New(sampleCount))
	}

	var total domain.IngestResult
	failed := 0
	for _, src := range sources {
		result, err := headlineService.IngestFrom(cmd.Context(), src)
		if err != nil {
			var storageErr *domain.StorageError
			if errors.As(err, &storageErr) {
				return err
			}
			failed++
			cmd.PrintErrf("Skipped %s: %v\n", src.Name(), err)
			continue
		}
		cmd.Printf("%s: %s\n", src.Name(), formatIngestResult(result))
		total.Accepted += result.Accepted
		total.Duplicates += result.Duplicates
		total.Rejected += result.Rejected
	}

	if len(sources) > 1 {
		cmd.Printf("Total: %s\n", formatIngestResult(total))
	}
	if count, err := headlineService.Count(cmd.Context()); err == nil {
		cmd.Printf("Store holds %d headlines\n", count)
	}
	if failed == len(sources) {
		return errors.New("no source could be ingested")
	}
	return nil
}

func formatIngestResult(r domain.IngestResult) string {
	return fmt.Sprintf("%d accepted, %d duplicates, %d rejected", r.Accepted, r.Duplicates, r.Rejected)
}
