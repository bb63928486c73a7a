package file

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/newsdigest/internal/core/ports/driven"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to the
// built-in defaults in driven.DefaultPrompts.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// verbs lists the fmt verbs each built-in prompt must keep, in order.
var verbs = map[string][]string{
	driven.PromptClusterSummary:   {"%s", "%s"},
	driven.PromptExecutiveSummary: {"%s", "%d"},
}

var verbPattern = regexp.MustCompile(`%%|%[sdv]`)

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.newsdigest/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// A missing file, or an edited file whose placeholders no longer match
// the default, falls back to the built-in template.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := driven.DefaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := driven.DefaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	if want, ok := verbs[name]; ok && !slices.Equal(placeholders(prompt), want) {
		logger.With("prompts").Warn("prompt placeholders changed, using built-in template",
			"prompt", name, "want", strings.Join(want, " "))
		prompt = driven.DefaultPrompts[name]
	}

	// Another goroutine may have loaded it first; keep theirs.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// placeholders returns the fmt verbs in s, ignoring escaped percent signs.
func placeholders(s string) []string {
	var out []string
	for _, m := range verbPattern.FindAllString(s, -1) {
		if m != "%%" {
			out = append(out, m)
		}
	}
	return out
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range driven.DefaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# newsdigest prompts

These templates are sent to the configured summary provider.

- ` + "`cluster_summary.txt`" + ` summarises one cluster. It takes the most
  representative headline (` + "`%s`" + `) and the bulleted headlines (` + "`%s`" + `).
- ` + "`executive_summary.txt`" + ` combines the cluster summaries (` + "`%s`" + `) and
  reports how many clusters had no summary (` + "`%d`" + `).

Keep the placeholders in the same order. A file whose placeholders differ
is ignored and the built-in template is used instead. Edits take effect on
the next run. Summaries are cached by prompt input, so changing a template
does not invalidate cached summaries until they expire.
`
	return os.WriteFile(path, []byte(content), 0600)
}
