package domain

import "time"

// ExecutiveClusterID identifies the executive summary in errors and cache keys.
const ExecutiveClusterID = -1

// ClusterSummary is the generated summary for one cluster of a run.
type ClusterSummary struct {
	RunID            string    `json:"run_id"`
	ClusterID        int       `json:"cluster_id"`
	SummaryText      string    `json:"summary_text"`
	HeadlineCount    int       `json:"headline_count"`
	RepresentativeID string    `json:"representative_id"`
	GeneratedAt      time.Time `json:"generated_at"`

	// Cached is true when the text came from the response cache.
	Cached bool `json:"cached"`
}

// ExecutiveSummary synthesises all successful cluster summaries of a run.
type ExecutiveSummary struct {
	RunID              string    `json:"run_id"`
	SummaryText        string    `json:"summary_text"`
	GeneratedAt        time.Time `json:"generated_at"`
	SourceClusterCount int       `json:"source_cluster_count"`

	// OmittedClusterCount is the number of clusters left out because
	// their summary was unavailable.
	OmittedClusterCount int `json:"omitted_cluster_count"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is a keyword-based tally over a run's headlines.
type Sentiment struct {
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Overall  string `json:"overall"`
}
