package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptClusterSummary summarises one cluster of headlines.
	// The template expects %s (representative headline) and %s (bulleted headlines).
	PromptClusterSummary = "cluster_summary"

	// PromptExecutiveSummary synthesises cluster summaries into one overview.
	// The template expects %s (numbered cluster summaries) and %d (omitted cluster count).
	PromptExecutiveSummary = "executive_summary"
)

// DefaultPrompts are the built-in templates used when no user-edited
// prompt file exists.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptClusterSummary: `You are a financial news editor. Analyze these related financial news headlines and write a concise summary.

Most representative headline: %s

Headlines:
%s

Cover the key companies mentioned, the main sectors involved, the primary themes or trends, and the market implications.
Keep the summary under 200 words and focus on actionable insights. Return only the summary text.`,

	PromptExecutiveSummary: `You are a senior financial editor. Based on these financial news cluster summaries, write an executive summary.

%s

Clusters omitted because no summary was available: %d

Include an overall market overview, key trends and themes, sector-specific insights, investment implications and risk factors to watch.
Format it as a professional executive summary suitable for financial professionals. Return only the summary text.`,
}
