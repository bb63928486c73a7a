package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// digestOptions controls how much of a digest is printed.
type digestOptions struct {
	headlines bool
}

// printDigest writes a human-readable digest to w.
func printDigest(w io.Writer, d driving.Digest, opts digestOptions) {
	st := newStyles(w)

	fmt.Fprintf(w, "%s %s  %s\n", st.Title("Run"), d.RunID, st.Status(d.Status))
	fmt.Fprintf(w, "%s\n", st.Muted(describeRun(d)))
	if d.Sentiment.Overall != "" {
		fmt.Fprintf(w, "Sentiment: %s (%d positive, %d negative, %d neutral)\n",
			d.Sentiment.Overall, d.Sentiment.Positive, d.Sentiment.Negative, d.Sentiment.Neutral)
	}
	if d.Error != "" {
		fmt.Fprintf(w, "%s %s\n", st.Failure("Error:"), d.Error)
	}

	if d.Executive != "" {
		fmt.Fprintf(w, "\n%s\n", st.Heading("Executive summary"))
		fmt.Fprintln(w, st.Wrap(d.Executive, 2))
	}

	for _, c := range d.Clusters {
		fmt.Fprintf(w, "\n%s\n", st.Heading(fmt.Sprintf("Cluster %d (%d headlines)", c.ClusterID, c.HeadlinesCount)))
		if c.Representative != "" {
			fmt.Fprintf(w, "  %s %s\n", st.Muted("Representative:"), c.Representative)
		}
		summary := c.Summary
		if !c.Available {
			summary = st.Warning(summary)
		}
		fmt.Fprintln(w, st.Wrap(summary, 2))
		if len(c.CommonWords) > 0 {
			fmt.Fprintf(w, "  %s %s\n", st.Muted("Common words:"), strings.Join(c.CommonWords, ", "))
		}
		if opts.headlines {
			for _, h := range c.Headlines {
				fmt.Fprintf(w, "    - %s\n", h)
			}
		}
	}

	if len(d.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", st.Warning(fmt.Sprintf("Warnings (%d)", len(d.Warnings))))
		for _, warning := range d.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
}

func describeRun(d driving.Digest) string {
	parts := []string{"started " + d.StartedAt.Local().Format(time.DateTime)}
	if !d.FinishedAt.IsZero() {
		parts = append(parts, "took "+d.FinishedAt.Sub(d.StartedAt).Round(time.Millisecond).String())
	}
	parts = append(parts,
		fmt.Sprintf("%d headlines", d.HeadlineCount),
		fmt.Sprintf("%d clusters (requested %d)", d.KUsed, d.RequestedK))
	return strings.Join(parts, " · ")
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
