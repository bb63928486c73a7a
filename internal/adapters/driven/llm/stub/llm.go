// Package stub provides an offline LLM service that writes template
// summaries from keyword matches. It needs no network access and always
// returns the same text for the same prompt.
package stub

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// ModelName is reported for the stub provider.
const ModelName = "stub-v1"

const (
	maxCompanies = 3
	maxSectors   = 2
	maxThemes    = 2
)

// keyword maps a set of trigger words or phrases to a label.
type keyword struct {
	label    string
	triggers []string
}

var companies = []string{
	"apple", "tesla", "microsoft", "google", "amazon", "facebook", "netflix", "disney",
	"intel", "amd", "jpmorgan", "wells fargo", "citigroup", "goldman sachs", "bank of america",
}

var sectors = []keyword{
	{"Technology", []string{"tech", "technology", "software", "ai", "cloud"}},
	{"Financial Services", []string{"bank", "financial", "finance", "earnings", "profit"}},
	{"Entertainment", []string{"streaming", "entertainment", "media"}},
	{"Semiconductors", []string{"chip", "semiconductor", "processor"}},
	{"Monetary Policy", []string{"fed", "federal reserve", "interest rate"}},
	{"Commodities", []string{"oil", "gold", "commodity"}},
}

var themes = []keyword{
	{"Earnings Reports", []string{"earnings", "profit", "revenue", "quarterly"}},
	{"Market Movements", []string{"stock", "shares", "market"}},
	{"Regulatory Issues", []string{"regulation", "regulatory", "scrutiny"}},
	{"AI & Innovation", []string{"ai", "artificial intelligence", "innovation"}},
}

var clusterLine = regexp.MustCompile(`^Cluster (\d+) \((\d+) headlines\): (.*)$`)

// LLMService is the offline keyword summariser.
type LLMService struct{}

// New creates the stub service.
func New() *LLMService {
	return &LLMService{}
}

// Generate inspects the prompt. Prompts carrying "Cluster N (M headlines):"
// lines get an executive overview; anything else is treated as a cluster
// prompt whose "- " lines are the headlines.
func (s *LLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if clusters := parseClusters(prompt); len(clusters) > 0 {
		return executiveSummary(clusters), nil
	}
	return clusterSummary(parseBullets(prompt)), nil
}

// ModelName returns the stub's model name.
func (s *LLMService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *LLMService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

func parseBullets(prompt string) []string {
	var lines []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			lines = append(lines, strings.TrimSpace(line[2:]))
		}
	}
	if len(lines) == 0 && strings.TrimSpace(prompt) != "" {
		lines = []string{strings.TrimSpace(prompt)}
	}
	return lines
}

type clusterEntry struct {
	id        int
	headlines int
	summary   string
}

func parseClusters(prompt string) []clusterEntry {
	var out []clusterEntry
	for _, line := range strings.Split(prompt, "\n") {
		m := clusterLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		n, _ := strconv.Atoi(m[2])
		out = append(out, clusterEntry{id: id, headlines: n, summary: m[3]})
	}
	return out
}

func clusterSummary(headlines []string) string {
	text := normalise(strings.Join(headlines, " "))

	var found []string
	for _, c := range companies {
		if len(found) == maxCompanies {
			break
		}
		if containsTerm(text, c) {
			found = append(found, titleCase(c))
		}
	}

	companyText := "major companies"
	if len(found) > 0 {
		companyText = strings.Join(found, ", ")
	}
	sectorText := "technology and financial sectors"
	if labels := matchLabels(text, sectors, maxSectors); len(labels) > 0 {
		sectorText = strings.Join(labels, " and ") + " sectors"
	}
	themeText := "market developments"
	if labels := matchLabels(text, themes, maxThemes); len(labels) > 0 {
		themeText = strings.Join(labels, " and ")
	}

	return fmt.Sprintf("This cluster focuses on %s, covering %d headlines in the %s. "+
		"Key themes include %s, with significant implications for market sentiment and investor confidence.",
		companyText, len(headlines), sectorText, themeText)
}

func executiveSummary(clusters []clusterEntry) string {
	total := 0
	for _, c := range clusters {
		total += c.headlines
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d financial headlines across %d thematic clusters.\n\nKey insights:\n",
		total, len(clusters))
	for _, c := range clusters {
		fmt.Fprintf(&b, "- Cluster %d (%d headlines): %s\n", c.id, c.headlines, firstSentence(c.summary))
	}
	b.WriteString("\nMarket participants should monitor these themes for developments affecting sentiment and positioning.")
	return b.String()
}

func matchLabels(text string, groups []keyword, limit int) []string {
	var labels []string
	for _, g := range groups {
		if len(labels) == limit {
			break
		}
		for _, trigger := range g.triggers {
			if containsTerm(text, trigger) {
				labels = append(labels, g.label)
				break
			}
		}
	}
	return labels
}

// normalise lowercases text and reduces it to space-separated words with a
// leading and trailing space, so terms can be matched on word boundaries.
func normalise(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

func containsTerm(text, term string) bool {
	return strings.Contains(text, " "+term+" ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		switch w {
		case "amd":
			words[i] = "AMD"
		case "jpmorgan":
			words[i] = "JPMorgan"
		case "of":
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
