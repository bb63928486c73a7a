package services

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// commonWordLimit is how many frequent words a cluster analysis keeps.
const commonWordLimit = 5

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "after": {}, "over": {}, "amid": {}, "says": {}, "new": {},
}

var (
	positiveWords = []string{"rise", "rises", "gain", "gains", "beat", "beats", "strong", "positive", "growth", "record", "surge", "rally"}
	negativeWords = []string{"fall", "falls", "drop", "drops", "loss", "losses", "weak", "negative", "decline", "slump", "cut", "miss"}
)

// AnalyzeCluster computes descriptive statistics over a cluster's texts.
func AnalyzeCluster(texts []string) domain.ClusterAnalysis {
	if len(texts) == 0 {
		return domain.ClusterAnalysis{}
	}

	var totalLen int
	freq := make(map[string]int)
	for _, text := range texts {
		totalLen += utf8.RuneCountInString(text)
		for _, word := range tokenize(text) {
			if _, stop := stopwords[word]; stop || utf8.RuneCountInString(word) < 2 {
				continue
			}
			freq[word]++
		}
	}

	words := make([]domain.WordCount, 0, len(freq))
	for w, n := range freq {
		words = append(words, domain.WordCount{Word: w, Count: n})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > commonWordLimit {
		words = words[:commonWordLimit]
	}

	return domain.ClusterAnalysis{
		AvgLength:   float64(totalLen) / float64(len(texts)),
		CommonWords: words,
	}
}

// TallySentiment counts headlines containing positive or negative market
// vocabulary. A headline with both kinds of words counts as neutral.
func TallySentiment(texts []string) domain.Sentiment {
	var s domain.Sentiment
	for _, text := range texts {
		words := make(map[string]struct{})
		for _, w := range tokenize(text) {
			words[w] = struct{}{}
		}
		pos, neg := containsAny(words, positiveWords), containsAny(words, negativeWords)
		switch {
		case pos && !neg:
			s.Positive++
		case neg && !pos:
			s.Negative++
		default:
			s.Neutral++
		}
	}

	switch {
	case s.Positive > s.Negative:
		s.Overall = domain.SentimentPositive
	case s.Negative > s.Positive:
		s.Overall = domain.SentimentNegative
	default:
		s.Overall = domain.SentimentNeutral
	}
	return s
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func containsAny(words map[string]struct{}, vocab []string) bool {
	for _, v := range vocab {
		if _, ok := words[v]; ok {
			return true
		}
	}
	return false
}
