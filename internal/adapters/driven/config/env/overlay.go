// Package env overlays environment variables on another config store.
//
// It is the only place in the program that reads configuration from the
// environment. Each dotted config key can be set through NEWSDIGEST_ plus
// the key in upper case with dots replaced by underscores, and some keys
// also have short aliases:
//
//	pipeline.k_clusters    K_CLUSTERS
//	llm.api_key            SUMMARY_API_KEY, GEMINI_API_KEY
//
// Aliases are listed in precedence order and win over the generic name.
package env

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// Prefix is prepended to generic variable names.
const Prefix = "NEWSDIGEST_"

// Aliases maps config keys to their short environment names.
var Aliases = map[string][]string{
	"pipeline.k_clusters":            {"K_CLUSTERS"},
	"pipeline.max_headlines_per_run": {"MAX_HEADLINES_PER_RUN"},
	"pipeline.max_age":               {"MAX_HEADLINE_AGE"},
	"pipeline.sources":               {"HEADLINE_SOURCES"},
	"embedding.provider":             {"EMBEDDING_PROVIDER"},
	"embedding.model":                {"EMBEDDING_MODEL_ID"},
	"embedding.api_key":              {"EMBEDDING_API_KEY"},
	"llm.provider":                   {"SUMMARY_PROVIDER"},
	"llm.model":                      {"SUMMARY_MODEL_ID"},
	"llm.api_key":                    {"SUMMARY_API_KEY", "GEMINI_API_KEY"},
	"retry.max_attempts":             {"MAX_RETRY_ATTEMPTS"},
	"retry.backoff_base_ms":          {"RETRY_BACKOFF_BASE_MS"},
	"cache.redis_url":                {"REDIS_URL"},
	"data_dir":                       {"NEWSDIGEST_DATA_DIR"},
}

// Overlay answers reads from the environment first and falls through to
// the base store. Writes go to the base store only.
type Overlay struct {
	base   driven.ConfigStore
	lookup func(string) (string, bool)
}

// New wraps base with the process environment.
func New(base driven.ConfigStore) *Overlay {
	return NewWithLookup(base, os.LookupEnv)
}

// NewWithLookup wraps base with a custom variable lookup, which tests use
// in place of the process environment.
func NewWithLookup(base driven.ConfigStore, lookup func(string) (string, bool)) *Overlay {
	return &Overlay{base: base, lookup: lookup}
}

// VarName returns the generic variable name for key.
func VarName(key string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Source reports which variable supplies key, if any.
func (o *Overlay) Source(key string) (string, bool) {
	for _, name := range Aliases[key] {
		if v, ok := o.lookup(name); ok && v != "" {
			return name, true
		}
	}
	name := VarName(key)
	if v, ok := o.lookup(name); ok && v != "" {
		return name, true
	}
	return "", false
}

func (o *Overlay) env(key string) (string, bool) {
	name, ok := o.Source(key)
	if !ok {
		return "", false
	}
	v, _ := o.lookup(name)
	return strings.TrimSpace(v), true
}

// Get returns the environment value as a string when set.
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.base.GetString(key)
}

// GetInt parses the environment value; malformed numbers read as 0 so
// validation reports them.
func (o *Overlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	}
	return o.base.GetInt(key)
}

// GetBool retrieves a boolean configuration value.
func (o *Overlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return o.base.GetBool(key)
}

// Set writes to the base store. An environment variable for the same key
// still shadows the stored value.
func (o *Overlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Keys returns the base keys plus every aliased key that the environment
// currently sets.
func (o *Overlay) Keys() []string {
	seen := make(map[string]bool)
	for _, k := range o.base.Keys() {
		seen[k] = true
	}
	for k := range Aliases {
		if _, ok := o.Source(k); ok {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
