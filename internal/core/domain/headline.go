package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RawHeadline is a headline as produced by a headline source, before
// normalisation and deduplication.
type RawHeadline struct {
	Text      string    `json:"text" yaml:"text"`
	Source    string    `json:"source" yaml:"source"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	URL       string    `json:"url" yaml:"url"`
}

// HeadlineRecord is a stored headline. Records are immutable once stored.
type HeadlineRecord struct {
	// ID is the content-derived identifier (see HeadlineID).
	ID string `json:"id"`

	// Text is the normalised headline text.
	Text string `json:"text"`

	// Source is the publisher or feed the headline came from.
	Source string `json:"source"`

	// Timestamp is when the headline was published.
	Timestamp time.Time `json:"timestamp"`

	// URL links to the full article, if known.
	URL string `json:"url,omitempty"`

	// IngestedAt is when the record was first stored.
	IngestedAt time.Time `json:"ingested_at"`
}

// IngestResult reports the outcome of an ingestion call.
type IngestResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	// Rejected counts records with no usable text after normalisation.
	Rejected int `json:"rejected"`
}

// Total returns the number of records seen by the ingestion call.
func (r IngestResult) Total() int {
	return r.Accepted + r.Duplicates + r.Rejected
}

// CollapseWhitespace trims s and replaces every run of whitespace with a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HeadlineID derives the stable identifier for a headline. Text and source
// are whitespace-collapsed and lowercased before hashing, so cosmetic
// differences map to the same ID.
func HeadlineID(text, source string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(CollapseWhitespace(text))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(CollapseWhitespace(source))))
	return hex.EncodeToString(h.Sum(nil))
}
