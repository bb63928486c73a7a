package domain

import "time"

// ClusterPoint is one embedded headline handed to the cluster engine.
type ClusterPoint struct {
	ID        string
	Timestamp time.Time
	Vector    []float32
}

// Cluster is a group of headlines from a single run.
// IDs are assigned 0..k-1 in order of descending member count.
type Cluster struct {
	ID               int             `json:"id"`
	MemberIDs        []string        `json:"member_ids"`
	RepresentativeID string          `json:"representative_id"`
	Centroid         []float32       `json:"centroid"`
	Analysis         ClusterAnalysis `json:"analysis"`
}

// Size returns the number of members in the cluster.
func (c Cluster) Size() int {
	return len(c.MemberIDs)
}

// Contains reports whether id is a member of the cluster.
func (c Cluster) Contains(id string) bool {
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// ClusterAnalysis holds descriptive statistics for a cluster's headlines.
type ClusterAnalysis struct {
	// AvgLength is the mean headline length in characters.
	AvgLength float64 `json:"avg_length"`

	// CommonWords are the most frequent words, most frequent first.
	CommonWords []WordCount `json:"common_words"`
}

// WordCount pairs a word with its frequency.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ModelState is a serialisable snapshot of a clustering result.
// It is kept for diagnostics only; every run clusters from scratch.
type ModelState struct {
	RequestedK     int            `json:"requested_k"`
	K              int            `json:"k"`
	Seed           int64          `json:"seed"`
	Restarts       int            `json:"restarts"`
	Iterations     int            `json:"iterations"`
	Inertia        float64        `json:"inertia"`
	Dimensions     int            `json:"dimensions"`
	EmbeddingModel string         `json:"embedding_model"`
	Centroids      [][]float32    `json:"centroids"`
	Assignments    map[string]int `json:"assignments"`
}
