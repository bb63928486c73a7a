package driving

import (
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// UnavailableSummary is shown in place of a cluster summary that could
// not be generated.
const UnavailableSummary = "Summary unavailable"

// DigestCluster is one row of a digest, one per cluster.
type DigestCluster struct {
	ClusterID      int       `json:"cluster_id"`
	Summary        string    `json:"summary"`
	Available      bool      `json:"available"`
	HeadlinesCount int       `json:"headlines_count"`
	Representative string    `json:"representative"`
	Headlines      []string  `json:"headlines"`
	CommonWords    []string  `json:"common_words,omitempty"`
	Cached         bool      `json:"cached"`
	Timestamp      time.Time `json:"timestamp,omitzero"`
}

// Digest is the reader-facing view of a run used by the driving adapters.
type Digest struct {
	RunID           string           `json:"run_id"`
	Status          domain.RunState  `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at,omitzero"`
	HeadlineCount   int              `json:"headline_count"`
	RequestedK      int              `json:"requested_k"`
	KUsed           int              `json:"k_used"`
	Executive       string           `json:"executive_summary,omitempty"`
	OmittedClusters int              `json:"omitted_clusters"`
	Sentiment       domain.Sentiment `json:"sentiment"`
	Error           string           `json:"error,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Clusters        []DigestCluster  `json:"clusters"`
	EmbeddingModel  string           `json:"embedding_model,omitempty"`
}

// Digest builds the reader-facing view of the run. Member headlines are
// listed in cluster order; members missing from Headlines are skipped.
func (d *RunDetail) Digest() Digest {
	run := d.Run
	out := Digest{
		RunID:         run.ID,
		Status:        run.Status,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		HeadlineCount: run.HeadlineCount,
		RequestedK:    run.RequestedK,
		KUsed:         run.KUsed,
		Sentiment:     run.Sentiment,
		Error:         run.Error,
		Warnings:      run.Warnings,
		Clusters:      make([]DigestCluster, 0, len(run.Clusters)),
	}
	if run.Executive != nil {
		out.Executive = run.Executive.SummaryText
		out.OmittedClusters = run.Executive.OmittedClusterCount
	}
	if run.Model != nil {
		out.EmbeddingModel = run.Model.EmbeddingModel
	}

	for _, c := range run.Clusters {
		row := DigestCluster{
			ClusterID:      c.ID,
			Summary:        UnavailableSummary,
			HeadlinesCount: c.Size(),
			Headlines:      make([]string, 0, c.Size()),
		}
		if rep, ok := d.Headlines[c.RepresentativeID]; ok {
			row.Representative = rep.Text
		}
		for _, id := range c.MemberIDs {
			if h, ok := d.Headlines[id]; ok {
				row.Headlines = append(row.Headlines, h.Text)
			}
		}
		for _, w := range c.Analysis.CommonWords {
			row.CommonWords = append(row.CommonWords, w.Word)
		}
		if s, ok := run.SummaryFor(c.ID); ok {
			row.Summary = s.SummaryText
			row.Available = true
			row.Cached = s.Cached
			row.Timestamp = s.GeneratedAt
		}
		out.Clusters = append(out.Clusters, row)
	}
	return out
}
