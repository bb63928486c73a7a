package html

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextNormaliser = (*Normaliser)(nil)

// Normaliser strips markup from headline text. Feed titles often carry
// inline tags and entities ("<b>Fed</b> holds &amp; signals cuts").
type Normaliser struct {
	policy *bluemonday.Policy
}

// New creates a new HTML normaliser.
func New() *Normaliser {
	policy := bluemonday.StrictPolicy()
	// Keep words on either side of a removed tag apart: "<p>a</p><p>b</p>" is "a b".
	policy.AddSpaceWhenStrippingTag(true)
	return &Normaliser{policy: policy}
}

// Normalise removes every tag, drops script and style content, decodes
// entities and collapses whitespace.
func (n *Normaliser) Normalise(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return domain.CollapseWhitespace(text)
	}

	stripped := n.policy.Sanitize(text)

	// Sanitize re-escapes text, and feeds are sometimes double-escaped,
	// so decode until stable.
	for i := 0; i < 3; i++ {
		decoded := html.UnescapeString(stripped)
		if decoded == stripped {
			break
		}
		stripped = decoded
	}

	return domain.CollapseWhitespace(stripped)
}
