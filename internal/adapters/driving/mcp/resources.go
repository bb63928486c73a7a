package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

const (
	// uriScheme is the custom URI scheme for digest resources.
	uriScheme = "digest://"

	latestRunURI = uriScheme + "runs/latest"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         latestRunURI,
		Name:        "latest-digest",
		Description: "Digest of the most recent pipeline run",
		MIMEType:    "application/json",
	}, s.handleLatestResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "runs/{runId}",
		Name:        "run-digest",
		Description: "Digest of a specific pipeline run",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

// handleLatestResource returns the digest of the most recent run.
func (s *Server) handleLatestResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	detail, err := s.ports.Runs.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest run: %w", err)
	}
	return digestResult(req.Params.URI, detail)
}

// handleRunResource returns the digest of the run named in the URI.
func (s *Server) handleRunResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runID := extractRunID(req.Params.URI)
	if runID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if req.Params.URI == latestRunURI {
		return s.handleLatestResource(ctx, req)
	}

	detail, err := s.ports.Runs.Get(ctx, runID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	return digestResult(req.Params.URI, detail)
}

func digestResult(uri string, detail *driving.RunDetail) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(detail.Digest(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling digest: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRunID extracts the run ID from a URI like digest://runs/{runId}.
func extractRunID(uri string) string {
	const prefix = uriScheme + "runs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
