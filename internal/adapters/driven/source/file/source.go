// Package file provides a HeadlineSource that reads headlines from local
// files in JSON Lines, JSON, CSV or YAML form.
package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.HeadlineSource = (*Source)(nil)

// Format identifies a headline file encoding.
type Format string

// Supported formats.
const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatYAML  Format = "yaml"
)

// timeLayouts are tried in order when parsing timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Source reads one file.
type Source struct {
	path          string
	format        Format
	defaultSource string
}

// New creates a source for path. The format is chosen from the extension.
// Records without a source field are attributed to the file's base name.
func New(path string) (*Source, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	return &Source{
		path:          path,
		format:        format,
		defaultSource: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}, nil
}

// FormatFor maps a file extension to a Format.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported headline file %q", domain.ErrUnsupportedType, filepath.Base(path))
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "file:" + s.path
}

// Fetch parses the whole file.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawHeadline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var records []record
	switch s.format {
	case FormatJSONL:
		records, err = decodeJSONL(f)
	case FormatJSON:
		records, err = decodeJSON(f)
	case FormatCSV:
		records, err = decodeCSV(f)
	case FormatYAML:
		records, err = decodeYAML(f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	out := make([]domain.RawHeadline, 0, len(records))
	for i, r := range records {
		raw, err := r.toRaw(s.defaultSource)
		if err != nil {
			return nil, fmt.Errorf("parse %s: record %d: %w", s.path, i+1, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// record accepts the field names used by common exports: "text",
// "headline" or "title" for the text and "timestamp", "published_at" or
// "date" for the time.
type record struct {
	Text        string `json:"text" yaml:"text"`
	Headline    string `json:"headline" yaml:"headline"`
	Title       string `json:"title" yaml:"title"`
	Source      string `json:"source" yaml:"source"`
	URL         string `json:"url" yaml:"url"`
	Link        string `json:"link" yaml:"link"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	PublishedAt string `json:"published_at" yaml:"published_at"`
	Date        string `json:"date" yaml:"date"`
}

func (r record) toRaw(defaultSource string) (domain.RawHeadline, error) {
	ts, err := parseTimestamp(firstNonEmpty(r.Timestamp, r.PublishedAt, r.Date))
	if err != nil {
		return domain.RawHeadline{}, err
	}
	return domain.RawHeadline{
		Text:      firstNonEmpty(r.Text, r.Headline, r.Title),
		Source:    firstNonEmpty(r.Source, defaultSource),
		Timestamp: ts,
		URL:       firstNonEmpty(r.URL, r.Link),
	}, nil
}

// parseTimestamp returns the zero time for an empty string. Values
// without a zone are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", domain.ErrInvalidInput, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func decodeJSONL(r io.Reader) ([]record, error) {
	var out []record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}

// decodeJSON accepts either an array of records or an object with a
// "headlines" array.
func decodeJSON(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var list []record
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Headlines []record `json:"headlines"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Headlines, nil
}

// decodeCSV requires a header row. Column names are matched case-insensitively.
func decodeCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := firstColumn(columns, "text", "headline", "title"); !ok {
		return nil, fmt.Errorf("%w: csv header has no text, headline or title column", domain.ErrInvalidInput)
	}

	get := func(row []string, names ...string) string {
		i, ok := firstColumn(columns, names...)
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record{
			Text:      get(row, "text", "headline", "title"),
			Source:    get(row, "source"),
			URL:       get(row, "url", "link"),
			Timestamp: get(row, "timestamp", "published_at", "date"),
		})
	}
}

func firstColumn(columns map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := columns[n]; ok {
			return i, true
		}
	}
	return 0, false
}

// decodeYAML accepts a sequence of records or a mapping with a
// "headlines" sequence.
func decodeYAML(r io.Reader) ([]record, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]

	var list []record
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped struct {
		Headlines []record `yaml:"headlines"`
	}
	if err := root.Decode(&wrapped); err != nil {
		return nil, err
	}
	return wrapped.Headlines, nil
}
