// Package domain defines the core business entities for newsdigest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - HeadlineRecord: A deduplicated, stored news headline
//   - Cluster: A group of semantically similar headlines with a representative
//   - ClusterSummary / ExecutiveSummary: Generated text for a run
//   - PipelineRun: The persisted outcome of one pipeline invocation
//   - Config: The immutable configuration resolved at process start
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
