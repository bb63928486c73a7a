package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Cache key kinds.
const (
	cacheKindCluster   = "cluster"
	cacheKindExecutive = "executive"
)

// ClusterInput is the text handed to the gateway for one cluster.
type ClusterInput struct {
	ClusterID      int
	Headlines      []string
	Representative string
}

// ClusterOutcome is the gateway's result for one cluster: a summary, or a
// *domain.SummarizationError, or the context error if the cluster was
// never started because the run was cancelled.
type ClusterOutcome struct {
	Summary domain.ClusterSummary
	Err     error
}

// SummarizerGateway calls the text-generation service for cluster and
// executive summaries. Every call goes through the response cache, the
// rate limiter and bounded retry.
type SummarizerGateway struct {
	llm         driven.LLMService
	cache       driven.SummaryCache
	prompts     driven.PromptStore
	policy      RetryPolicy
	limiter     *RateLimiter
	concurrency int
	maxTokens   int
	logger      *slog.Logger
	now         func() time.Time
}

// NewSummarizerGateway creates a gateway. prompts may be nil, in which
// case the built-in templates are used.
func NewSummarizerGateway(
	llm driven.LLMService,
	cache driven.SummaryCache,
	prompts driven.PromptStore,
	cfg domain.Config,
) *SummarizerGateway {
	concurrency := cfg.LLM.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &SummarizerGateway{
		llm:         llm,
		cache:       cache,
		prompts:     prompts,
		policy:      NewRetryPolicy(cfg.Retry),
		limiter:     NewRateLimiter(cfg.LLM.RequestsPerMinute, concurrency),
		concurrency: concurrency,
		maxTokens:   cfg.LLM.MaxTokens,
		logger:      logger.With("summarizer"),
		now:         time.Now,
	}
}

// SummaryCacheKey hashes the exact input of a generation call. Cluster
// headlines are sorted first, so member order does not matter.
func SummaryCacheKey(model, kind string, parts []string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SummarizeCluster summarises one cluster's headlines.
func (g *SummarizerGateway) SummarizeCluster(
	ctx context.Context,
	clusterID int,
	headlines []string,
	representative string,
) (domain.ClusterSummary, error) {
	sorted := append([]string(nil), headlines...)
	sort.Strings(sorted)
	key := SummaryCacheKey(g.llm.ModelName(), cacheKindCluster, append([]string{representative}, sorted...))

	prompt := fmt.Sprintf(g.template(driven.PromptClusterSummary), representative, bulletList(headlines))
	text, cached, err := g.generate(ctx, clusterID, key, prompt)
	if err != nil {
		return domain.ClusterSummary{}, err
	}

	return domain.ClusterSummary{
		ClusterID:     clusterID,
		SummaryText:   text,
		HeadlineCount: len(headlines),
		GeneratedAt:   g.now().UTC(),
		Cached:        cached,
	}, nil
}

// SummarizeExecutive synthesises successful cluster summaries. omitted is
// the number of clusters left out because their summary was unavailable;
// a non-zero count is always stated in the returned text.
func (g *SummarizerGateway) SummarizeExecutive(
	ctx context.Context,
	summaries []domain.ClusterSummary,
	omitted int,
) (domain.ExecutiveSummary, error) {
	if len(summaries) == 0 {
		return domain.ExecutiveSummary{}, fmt.Errorf("%w: no cluster summaries to synthesise", domain.ErrInvalidInput)
	}

	var body strings.Builder
	parts := make([]string, 0, len(summaries)+1)
	for i, s := range summaries {
		if i > 0 {
			body.WriteString("\n\n")
		}
		line := fmt.Sprintf("Cluster %d (%d headlines): %s", s.ClusterID, s.HeadlineCount, s.SummaryText)
		body.WriteString(line)
		parts = append(parts, line)
	}
	parts = append(parts, strconv.Itoa(omitted))
	key := SummaryCacheKey(g.llm.ModelName(), cacheKindExecutive, parts)

	prompt := fmt.Sprintf(g.template(driven.PromptExecutiveSummary), body.String(), omitted)
	text, _, err := g.generate(ctx, domain.ExecutiveClusterID, key, prompt)
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}
	if omitted > 0 {
		text += "\n\n" + OmissionNote(omitted)
	}

	return domain.ExecutiveSummary{
		SummaryText:         text,
		GeneratedAt:         g.now().UTC(),
		SourceClusterCount:  len(summaries),
		OmittedClusterCount: omitted,
	}, nil
}

// OmissionNote is appended to executive summaries that leave clusters out.
func OmissionNote(omitted int) string {
	if omitted == 1 {
		return "Note: 1 cluster was omitted because its summary was unavailable."
	}
	return fmt.Sprintf("Note: %d clusters were omitted because their summaries were unavailable.", omitted)
}

// SummarizeAll summarises clusters with bounded concurrency. Outcomes are
// returned in input order. Clusters not yet started when ctx is cancelled
// are skipped; calls already in flight run to completion or retry
// exhaustion. A panic in a provider call is raised again on the caller's
// goroutine once every worker has returned.
func (g *SummarizerGateway) SummarizeAll(ctx context.Context, inputs []ClusterInput) []ClusterOutcome {
	outcomes := make([]ClusterOutcome, len(inputs))
	detached := context.WithoutCancel(ctx)

	var (
		eg    errgroup.Group
		fault workerFault
	)
	eg.SetLimit(g.concurrency)
	for i, in := range inputs {
		eg.Go(func() error {
			defer fault.capture()
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			summary, err := g.SummarizeCluster(detached, in.ClusterID, in.Headlines, in.Representative)
			outcomes[i] = ClusterOutcome{Summary: summary, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	fault.rethrow()

	return outcomes
}

// generate returns cached text for key, or calls the provider with retry
// and caches the result.
func (g *SummarizerGateway) generate(ctx context.Context, clusterID int, key, prompt string) (string, bool, error) {
	if g.cache != nil {
		text, err := g.cache.Get(ctx, key)
		switch {
		case err == nil:
			g.logger.DebugContext(ctx, "summary cache hit", "cluster_id", clusterID)
			return text, true, nil
		case !errors.Is(err, domain.ErrCacheMiss):
			g.logger.WarnContext(ctx, "summary cache read failed", "cluster_id", clusterID, "error", err)
		}
	}

	opts := driven.GenerateOptions{MaxTokens: g.maxTokens}
	text, attempts, err := Retry(ctx, g.policy, g.logger, func(ctx context.Context) (string, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
		out, err := g.llm.Generate(ctx, prompt, opts)
		if err != nil {
			if limited, wait := driven.IsRateLimited(err); limited {
				g.limiter.RecordRateLimitError(wait)
			}
			return "", err
		}
		out = cleanResponse(out)
		if out == "" {
			return "", fmt.Errorf("%s returned an empty response", g.llm.ModelName())
		}
		return out, nil
	})
	if err != nil {
		return "", false, domain.NewSummarizationError(clusterID, attempts, err)
	}

	if g.cache != nil {
		if putErr := g.cache.Put(ctx, key, text); putErr != nil {
			g.logger.WarnContext(ctx, "summary cache write failed", "cluster_id", clusterID, "error", putErr)
		}
	}
	return text, false, nil
}

func (g *SummarizerGateway) template(name string) string {
	if g.prompts != nil {
		if tmpl, err := g.prompts.Load(name); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return driven.DefaultPrompts[name]
}

func bulletList(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(l)
	}
	return b.String()
}

// cleanResponse strips surrounding whitespace and markdown code fences
// that some models wrap around plain answers.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
