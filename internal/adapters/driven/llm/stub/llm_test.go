package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

func TestGenerate_ClusterSummary(t *testing.T) {
	prompt := `Most representative headline: Apple beats quarterly earnings

Headlines:
- Apple beats quarterly earnings
- Microsoft cloud revenue surges
- Apple shares climb after earnings`

	out, err := New().Generate(context.Background(), prompt, driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "This cluster focuses on Apple, Microsoft, covering 3 headlines in the "+
		"Technology and Financial Services sectors. Key themes include Earnings Reports and Market Movements, "+
		"with significant implications for market sentiment and investor confidence.", out)
}

func TestGenerate_ClusterSummaryFallbacks(t *testing.T) {
	out, err := New().Generate(context.Background(), "- Something happened today", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "major companies")
	assert.Contains(t, out, "covering 1 headlines")
	assert.Contains(t, out, "technology and financial sectors")
	assert.Contains(t, out, "market developments")
}

func TestGenerate_MatchesWholeWordsOnly(t *testing.T) {
	// "said" must not trigger the "ai" keyword.
	out, err := New().Generate(context.Background(), "- Analyst said the outlook was fine", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.NotContains(t, out, "Technology")
	assert.NotContains(t, out, "AI & Innovation")
}

func TestGenerate_MultiWordTerms(t *testing.T) {
	out, err := New().Generate(context.Background(),
		"- Bank of America and Goldman Sachs react as Federal Reserve holds", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "Goldman Sachs, Bank of America")
	assert.Contains(t, out, "Monetary Policy")
}

func TestGenerate_ExecutiveSummary(t *testing.T) {
	prompt := `Summaries:

Cluster 0 (4 headlines): Tech led the rally. Investors cheered.

Cluster 2 (3 headlines): Oil fell sharply.`

	out, err := New().Generate(context.Background(), prompt, driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "Analyzed 7 financial headlines across 2 thematic clusters.")
	assert.Contains(t, out, "- Cluster 0 (4 headlines): Tech led the rally.")
	assert.NotContains(t, out, "Investors cheered")
	assert.Contains(t, out, "- Cluster 2 (3 headlines): Oil fell sharply.")
}

func TestGenerate_Deterministic(t *testing.T) {
	svc := New()
	a, err := svc.Generate(context.Background(), "- Tesla stock slides on regulatory scrutiny", driven.GenerateOptions{})
	require.NoError(t, err)
	b, err := svc.Generate(context.Background(), "- Tesla stock slides on regulatory scrutiny", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Generate(ctx, "- x", driven.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLifecycle(t *testing.T) {
	svc := New()
	assert.Equal(t, ModelName, svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
