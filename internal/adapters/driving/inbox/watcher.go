// Package inbox watches a directory and ingests headline files dropped into it.
//
// Files already present at start are ingested first. New files are
// ingested once they have stopped changing for the settle period, then
// moved to processed/ or, if they could not be parsed, to failed/.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/source/file"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/ports/driving"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// Subdirectories that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DefaultSettle is how long a file must be quiet before it is read.
const DefaultSettle = 500 * time.Millisecond

// IngestedFunc is called after each file is ingested.
type IngestedFunc func(ctx context.Context, path string, result domain.IngestResult)

// Watcher feeds files from one directory into a HeadlineService.
type Watcher struct {
	dir        string
	headlines  driving.HeadlineService
	settle     time.Duration
	onIngested IngestedFunc
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithOnIngested registers a callback run after each successful file.
func WithOnIngested(fn IngestedFunc) Option {
	return func(w *Watcher) { w.onIngested = fn }
}

// New creates a watcher for dir.
func New(dir string, headlines driving.HeadlineService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		headlines: headlines,
		settle:    DefaultSettle,
		logger:    logger.With("inbox"),
		pending:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled, ingesting files as they arrive.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("create %s directory: %w", sub, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.InfoContext(ctx, "watching inbox", "dir", w.dir)

	if err := w.scanExisting(ctx); err != nil {
		return err
	}

	tick := w.settle / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleEvent(event); ok {
				w.mark(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watcher error", "error", err)
		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.process(ctx, path)
			}
		}
	}
}

// handleEvent reports the file an event refers to, if it should be ingested.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
		return "", false
	}
	if !eligible(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

// eligible skips hidden and temporary files and unknown extensions.
func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	_, err := file.FormatFor(path)
	return err == nil
}

func (w *Watcher) mark(path string) {
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// due removes and returns pending files quiet for at least the settle period.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) scanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if eligible(path) {
			w.process(ctx, path)
		}
	}
	return nil
}

// process ingests one file and moves it out of the inbox. Storage errors
// leave the file in place so it is retried on the next write or restart.
func (w *Watcher) process(ctx context.Context, path string) {
	src, err := file.New(path)
	if err != nil {
		w.logger.WarnContext(ctx, "skipping file", "path", path, "error", err)
		return
	}

	result, err := w.headlines.IngestFrom(ctx, src)
	if err != nil {
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) || errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "ingest failed, leaving file in inbox", "path", path, "error", err)
			return
		}
		w.logger.WarnContext(ctx, "could not parse file", "path", path, "error", err)
		w.move(ctx, path, FailedDir)
		return
	}

	w.logger.InfoContext(ctx, "ingested file",
		"path", filepath.Base(path),
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected)
	w.move(ctx, path, ProcessedDir)

	if w.onIngested != nil {
		w.onIngested(ctx, path, result)
	}
}

// move renames path into sub, adding a timestamp if the name is taken.
func (w *Watcher) move(ctx context.Context, path, sub string) {
	target := filepath.Join(w.dir, sub, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(target, ext), time.Now().UnixNano(), ext)
	}
	if err := os.Rename(path, target); err != nil {
		w.logger.WarnContext(ctx, "could not move file", "path", path, "target", target, "error", err)
	}
}
