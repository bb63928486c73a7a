package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
)

// maxIngestBatch bounds how many headlines one ingest call may carry.
const maxIngestBatch = 1000

// RunPipelineInput is the input schema for the run_pipeline tool.
type RunPipelineInput struct{}

// LatestDigestInput is the input schema for the latest_digest tool.
type LatestDigestInput struct {
	IncludeHeadlines bool `json:"include_headlines,omitempty" jsonschema:"include every member headline of each cluster"`
}

// DigestOutput is the output schema for the run_pipeline and latest_digest tools.
type DigestOutput struct {
	RunID            string          `json:"run_id"`
	Status           string          `json:"status"`
	StartedAt        string          `json:"started_at"`
	HeadlineCount    int             `json:"headline_count"`
	KUsed            int             `json:"k_used"`
	ExecutiveSummary string          `json:"executive_summary"`
	Sentiment        string          `json:"sentiment"`
	Warnings         []string        `json:"warnings"`
	Clusters         []ClusterOutput `json:"clusters"`
}

// ClusterOutput represents one cluster of a digest.
type ClusterOutput struct {
	ClusterID      int      `json:"cluster_id"`
	Summary        string   `json:"summary"`
	Available      bool     `json:"available"`
	HeadlinesCount int      `json:"headlines_count"`
	Representative string   `json:"representative"`
	Headlines      []string `json:"headlines,omitempty"`
}

// IngestHeadlinesInput is the input schema for the ingest_headlines tool.
type IngestHeadlinesInput struct {
	Headlines []HeadlineInput `json:"headlines" jsonschema:"headlines to add to the store"`
}

// HeadlineInput is a single headline supplied to ingest_headlines.
type HeadlineInput struct {
	Text      string `json:"text" jsonschema:"the headline text"`
	Source    string `json:"source,omitempty" jsonschema:"publisher or feed name"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"publication time in RFC 3339 (default now)"`
	URL       string `json:"url,omitempty" jsonschema:"link to the full article"`
}

// IngestOutput is the output schema for the ingest_headlines tool.
type IngestOutput struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_pipeline",
		Description: "Cluster and summarise the most recent headlines now and return the new digest",
	}, s.handleRunPipeline)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "latest_digest",
		Description: "Return the digest produced by the most recent pipeline run",
	}, s.handleLatestDigest)

	if s.ports.Headlines != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_headlines",
			Description: "Add headlines to the store for the next pipeline run; duplicates are ignored",
		}, s.handleIngestHeadlines)
	}
}

// handleRunPipeline handles the run_pipeline tool invocation.
func (s *Server) handleRunPipeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RunPipelineInput,
) (*mcp.CallToolResult, DigestOutput, error) {
	run, err := s.ports.Pipeline.RunNow(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		return nil, DigestOutput{}, fmt.Errorf("a pipeline run is already in progress (state %s)", s.ports.Pipeline.State())
	}
	if err != nil {
		return nil, DigestOutput{}, fmt.Errorf("pipeline run failed: %w", err)
	}

	detail, err := s.ports.Runs.Get(ctx, run.ID)
	if err != nil {
		return nil, DigestOutput{}, fmt.Errorf("loading run %s: %w", run.ID, err)
	}
	return nil, toDigestOutput(detail.Digest(), false), nil
}

// handleLatestDigest handles the latest_digest tool invocation.
func (s *Server) handleLatestDigest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LatestDigestInput,
) (*mcp.CallToolResult, DigestOutput, error) {
	detail, err := s.ports.Runs.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, DigestOutput{}, errors.New("no pipeline runs yet; call run_pipeline first")
	}
	if err != nil {
		return nil, DigestOutput{}, err
	}
	return nil, toDigestOutput(detail.Digest(), input.IncludeHeadlines), nil
}

// handleIngestHeadlines handles the ingest_headlines tool invocation.
func (s *Server) handleIngestHeadlines(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestHeadlinesInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Headlines) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("%w: no headlines given", domain.ErrInvalidInput)
	}
	if len(input.Headlines) > maxIngestBatch {
		return nil, IngestOutput{}, fmt.Errorf("%w: at most %d headlines per call, got %d",
			domain.ErrInvalidInput, maxIngestBatch, len(input.Headlines))
	}

	raws := make([]domain.RawHeadline, 0, len(input.Headlines))
	for i, h := range input.Headlines {
		raw := domain.RawHeadline{
			Text:   h.Text,
			Source: h.Source,
			URL:    h.URL,
		}
		if ts := strings.TrimSpace(h.Timestamp); ts != "" {
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, IngestOutput{}, fmt.Errorf("%w: headline %d: timestamp %q is not RFC 3339",
					domain.ErrInvalidInput, i, h.Timestamp)
			}
			raw.Timestamp = parsed
		}
		raws = append(raws, raw)
	}

	result, err := s.ports.Headlines.Ingest(ctx, raws)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{
		Accepted:   result.Accepted,
		Duplicates: result.Duplicates,
		Rejected:   result.Rejected,
	}, nil
}

// toDigestOutput flattens a digest into the tool output schema.
func toDigestOutput(d driving.Digest, includeHeadlines bool) DigestOutput {
	out := DigestOutput{
		RunID:            d.RunID,
		Status:           d.Status.String(),
		StartedAt:        d.StartedAt.UTC().Format(time.RFC3339),
		HeadlineCount:    d.HeadlineCount,
		KUsed:            d.KUsed,
		ExecutiveSummary: d.Executive,
		Sentiment:        d.Sentiment.Overall,
		Warnings:         append([]string{}, d.Warnings...),
		Clusters:         make([]ClusterOutput, 0, len(d.Clusters)),
	}
	for _, c := range d.Clusters {
		row := ClusterOutput{
			ClusterID:      c.ClusterID,
			Summary:        c.Summary,
			Available:      c.Available,
			HeadlinesCount: c.HeadlinesCount,
			Representative: c.Representative,
		}
		if includeHeadlines {
			row.Headlines = c.Headlines
		}
		out.Clusters = append(out.Clusters, row)
	}
	return out
}
