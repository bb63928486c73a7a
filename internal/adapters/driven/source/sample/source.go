// Package sample provides a built-in HeadlineSource of representative
// financial headlines, for demos and offline runs.
package sample

import (
	"context"
	"time"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.HeadlineSource = (*Source)(nil)

// SourceName is the publisher recorded for sample headlines.
const SourceName = "Sample Financial News"

var headlines = []string{
	"Apple stock rises 3% on strong iPhone sales and services growth",
	"Tesla reports record quarterly earnings, beats analyst expectations",
	"Google parent Alphabet beats revenue expectations in Q4 earnings",
	"Microsoft announces new AI features for Azure cloud platform",
	"Amazon expands cloud services with new AI capabilities",
	"S&P 500 reaches new all-time high on strong earnings",
	"Bank of America reports strong quarterly profits",
	"Goldman Sachs reports mixed quarterly results",
	"JPMorgan Chase expands digital banking services",
	"Wells Fargo faces new regulatory challenges",
	"Facebook parent Meta faces regulatory scrutiny over data practices",
	"Intel chip shortage affects production across tech industry",
	"AMD gains market share in processors as demand increases",
	"Federal Reserve signals potential interest rate cuts",
	"Bitcoin volatility continues as regulatory uncertainty persists",
	"Oil prices surge on geopolitical tensions in Middle East",
	"Gold prices hit record high as investors seek safe haven",
	"Citigroup announces restructuring plan to cut costs",
	"Netflix subscriber growth slows as competition intensifies",
	"Disney streaming service gains momentum with new content",
}

// Source returns the sample set, stamped one minute apart ending at now.
type Source struct {
	limit int
	now   func() time.Time
}

// New returns a source yielding at most limit headlines; zero or less
// yields all of them.
func New(limit int) *Source {
	return &Source{limit: limit, now: time.Now}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "sample"
}

// Fetch returns the sample headlines.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawHeadline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(headlines)
	if s.limit > 0 && s.limit < n {
		n = s.limit
	}
	now := s.now().UTC().Truncate(time.Minute)
	out := make([]domain.RawHeadline, n)
	for i := 0; i < n; i++ {
		out[i] = domain.RawHeadline{
			Text:      headlines[i],
			Source:    SourceName,
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out, nil
}
