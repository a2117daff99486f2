// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{})
}

func startWatcher(t *testing.T, cfg Config) (cancel func()) {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	return func() {
		stop()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancellation")
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	calls := make(chan []string, 4)

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	for _, name := range []string{"a.less", "b.less", "c.less"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}

	select {
	case got := <-calls:
		want := []string{"a.less", "b.less", "c.less"}
		if !slices.Equal(got, want) {
			t.Errorf("changed = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	select {
	case extra := <-calls:
		t.Errorf("unexpected second callback with %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherPatternsAndIgnore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "less", "keep.txt"), "")
	writeFile(t, filepath.Join(dir, "dist", "keep.txt"), "")

	calls := make(chan []string, 4)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"src/**/*.less"},
		Ignore:   []string{"dist/**"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	writeFile(t, filepath.Join(dir, "dist", "app.less"), "ignored")
	writeFile(t, filepath.Join(dir, "src", "app.wxss"), "not matched")
	writeFile(t, filepath.Join(dir, "src", "less", "_vars.less"), "@c: red;")

	select {
	case got := <-calls:
		want := []string{"src/less/_vars.less"}
		if !slices.Equal(got, want) {
			t.Errorf("changed = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	calls := make(chan []string, 4)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"src/**/*.json"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	// The directory itself does not match the pattern but must still be
	// registered so the file created inside it is observed.
	if err := os.MkdirAll(filepath.Join(dir, "src", "pages"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "src", "pages", "index.json"), "{}")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-calls:
			if slices.Contains(got, "src/pages/index.json") {
				return
			}
		case <-deadline:
			t.Fatal("change inside new directory was not observed")
		}
	}
}

// waitFor collects callbacks until every path in want has been reported.
func waitFor(t *testing.T, calls <-chan []string, want ...string) {
	t.Helper()
	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for {
		missing := slices.DeleteFunc(slices.Clone(want), func(p string) bool { return seen[p] })
		if len(missing) == 0 {
			return
		}
		select {
		case got := <-calls:
			for _, p := range got {
				seen[p] = true
			}
		case <-deadline:
			t.Fatalf("paths %v were not reported", missing)
		}
	}
}

func TestWatcherDirectoryMovedIn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "staging", "newpage", "index.json"), "{}")
	writeFile(t, filepath.Join(dir, "staging", "newpage", "nested", "deep.json"), "{}")
	writeFile(t, filepath.Join(dir, "staging", "newpage", "notes.txt"), "skip")
	if err := os.MkdirAll(filepath.Join(dir, "src", "pages"), 0o755); err != nil {
		t.Fatal(err)
	}

	calls := make(chan []string, 8)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"src/**/*.json"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	if err := os.Rename(filepath.Join(dir, "staging", "newpage"), filepath.Join(dir, "src", "pages", "newpage")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, calls, "src/pages/newpage/index.json", "src/pages/newpage/nested/deep.json")

	// The moved tree is watched from now on.
	writeFile(t, filepath.Join(dir, "src", "pages", "newpage", "nested", "later.json"), "{}")
	waitFor(t, calls, "src/pages/newpage/nested/later.json")
}

func TestWatcherDirectoryMovedOut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "pages", "old", "old.json"), "{}")
	writeFile(t, filepath.Join(dir, "src", "pages", "gone", "gone.json"), "{}")
	if err := os.MkdirAll(filepath.Join(dir, "attic"), 0o755); err != nil {
		t.Fatal(err)
	}

	calls := make(chan []string, 8)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"src/**/*.json"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	if err := os.Rename(filepath.Join(dir, "src", "pages", "old"), filepath.Join(dir, "attic", "old")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, calls, "src/pages/old")

	if err := os.RemoveAll(filepath.Join(dir, "src", "pages", "gone")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, calls, "src/pages/gone")
}

func TestWatcherRemoval(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "gone.json")
	writeFile(t, target, "{}")

	calls := make(chan []string, 4)
	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	defer stop()

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-calls:
		if !slices.Equal(got, []string{"gone.json"}) {
			t.Errorf("changed = %v, want [gone.json]", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for removal callback")
	}
}

// A change arriving while a callback runs is handled by exactly one follow-up
// callback, never concurrently with the first.
func TestWatcherCoalescesWhileBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		active    atomic.Int32
		maxActive atomic.Int32
		mu        sync.Mutex
		batches   [][]string
	)
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	second := make(chan struct{})

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}

			mu.Lock()
			batches = append(batches, changed)
			count := len(batches)
			mu.Unlock()

			started <- struct{}{}
			if count == 1 {
				<-release
			} else {
				close(second)
			}
			return nil
		},
	})
	defer stop()

	writeFile(t, filepath.Join(dir, "first.wxss"), "1")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first callback never started")
	}

	writeFile(t, filepath.Join(dir, "second.wxss"), "2")
	// Several debounce periods pass while the first callback is blocked.
	time.Sleep(250 * time.Millisecond)
	close(release)

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("follow-up callback never ran")
	}

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent callbacks = %d, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(batches))
	}
	if !slices.Equal(batches[1], []string{"second.wxss"}) {
		t.Errorf("follow-up changed = %v, want [second.wxss]", batches[1])
	}
}

func TestWatcherCallbackErrorIsLogged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var buf syncBuffer
	logger := log.NewWithOptions(&buf, log.Options{})

	calls := make(chan struct{}, 4)
	stop := startWatcher(t, Config{
		Name:     "less",
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		Logger:   logger,
		OnChange: func(context.Context, []string) error {
			calls <- struct{}{}
			return os.ErrPermission
		},
	})

	writeFile(t, filepath.Join(dir, "a.less"), "x")
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	stop()

	out := buf.String()
	for _, want := range []string{"callback failed", "watch=less"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if err := w.Run(ctx); err != ErrAlreadyStarted {
		t.Errorf("second Run() = %v, want ErrAlreadyStarted", err)
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file, "")

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing base dir", cfg: Config{BaseDir: filepath.Join(dir, "nope")}},
		{name: "base is a file", cfg: Config{BaseDir: file}},
		{name: "invalid watch pattern", cfg: Config{BaseDir: dir, Patterns: []string{"src/[*.less"}}},
		{name: "empty ignore pattern", cfg: Config{BaseDir: dir, Ignore: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cfg.Logger = quietLogger()
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	w := &Watcher{ignores: DefaultIgnores()}
	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{"node_modules/lodash/index.js", true},
		{"src/app.less.swp", true},
		{"src/app.wxss~", true},
		{"src/.DS_Store", true},
		{"src/app.less", false},
		{"src/npm/index.js", false},
		{".gitignore", false},
	}
	for _, tt := range tests {
		if got := w.isIgnored(tt.path); got != tt.ignored {
			t.Errorf("isIgnored(%q) = %v, want %v", tt.path, got, tt.ignored)
		}
	}
	if !w.isIgnoredDir("node_modules") {
		t.Error("node_modules directory should be skipped")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
