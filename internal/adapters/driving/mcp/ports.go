package mcp

import (
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline triggers runs.
	Pipeline driving.PipelineRunner

	// Runs reads persisted runs.
	Runs driving.RunService

	// Headlines accepts new headlines. The ingest tool is only
	// registered when it is set.
	Headlines driving.HeadlineService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipeline
	}
	if p.Runs == nil {
		return ErrMissingRunService
	}
	return nil
}
