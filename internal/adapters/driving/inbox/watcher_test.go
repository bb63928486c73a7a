package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/core/services"
)

func startWatcher(t *testing.T, dir string, opts ...Option) (*services.HeadlineService, context.CancelFunc) {
	t.Helper()
	headlines := services.NewHeadlineService(memory.NewHeadlineStore(), nil)
	w := New(dir, headlines, append([]Option{WithSettle(20 * time.Millisecond)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return headlines, cancel
}

func countHeadlines(t *testing.T, svc *services.HeadlineService) int {
	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	return n
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWatcher_IngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "morning.jsonl"),
		[]byte(`{"text":"Fed holds rates","source":"wire"}`+"\n"+`{"text":"Oil slides","source":"wire"}`), 0600))

	headlines, _ := startWatcher(t, dir)

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "morning.jsonl"))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, countHeadlines(t, headlines))
	assert.False(t, exists(filepath.Join(dir, "morning.jsonl")))
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var results []domain.IngestResult
	headlines, _ := startWatcher(t, dir, WithOnIngested(func(_ context.Context, _ string, r domain.IngestResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.csv"),
		[]byte("headline,source\nGold hits record,FT\nGold hits record,FT\n"), 0600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, domain.IngestResult{Accepted: 1, Duplicates: 1}, results[0])
	assert.Equal(t, 1, countHeadlines(t, headlines))
	assert.True(t, exists(filepath.Join(dir, ProcessedDir, "drop.csv")))
}

func TestWatcher_MovesUnparseableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0600))

	startWatcher(t, dir)

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, FailedDir, "broken.json"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RunMissingDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	w := New(blocker, services.NewHeadlineService(memory.NewHeadlineStore(), nil))
	assert.Error(t, w.Run(context.Background()))
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.yaml")
	require.NoError(t, os.WriteFile(feed, []byte("[]"), 0600))
	hidden := filepath.Join(dir, ".feed.yaml")
	require.NoError(t, os.WriteFile(hidden, []byte("[]"), 0600))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0600))
	sub := filepath.Join(dir, "batch.json")
	require.NoError(t, os.Mkdir(sub, 0755))

	w := New(dir, nil)
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: feed, Op: fsnotify.Create}, true},
		{"write with chmod", fsnotify.Event{Name: feed, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: feed, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: feed, Op: fsnotify.Remove}, false},
		{"hidden", fsnotify.Event{Name: hidden, Op: fsnotify.Create}, false},
		{"unsupported extension", fsnotify.Event{Name: notes, Op: fsnotify.Create}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"gone", fsnotify.Event{Name: filepath.Join(dir, "gone.json"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.handleEvent(tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.event.Name, path)
			}
		})
	}
}

func TestDue_WaitsForSettle(t *testing.T) {
	w := New(t.TempDir(), nil, WithSettle(time.Second))
	w.mark("b.json")
	w.mark("a.json")

	assert.Empty(t, w.due(time.Now()))
	assert.Equal(t, []string{"a.json", "b.json"}, w.due(time.Now().Add(2*time.Second)))
	assert.Empty(t, w.due(time.Now().Add(3*time.Second)))
}
