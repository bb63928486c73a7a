// Package mcp provides an MCP (Model Context Protocol) server adapter for newsdigest.
// It lets AI assistants trigger pipeline runs, read the latest digest and
// feed headlines into the store.
package mcp

import "errors"

var (
	// ErrMissingPipeline is returned when the pipeline runner is not provided.
	ErrMissingPipeline = errors.New("mcp: pipeline runner is required")

	// ErrMissingRunService is returned when the run service is not provided.
	ErrMissingRunService = errors.New("mcp: run service is required")
)
