package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/librarian/internal/observe"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book_summaries.txt")
	if err := os.WriteFile(path, []byte("## Title: 1984\nA dystopia.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, observe.NewNop())
	if s.Count() != 1 {
		t.Fatalf("precondition failed: %d", s.Count())
	}

	w, err := NewWatcher(s, nil, observe.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("\n## Title: The Hobbit\nAn adventure.\n")
	f.Close()

	deadline := time.After(3 * time.Second)
	for s.Count() != 2 {
		select {
		case <-deadline:
			t.Fatalf("watcher did not reload, count still %d", s.Count())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestWatcher_IgnoresUnmatchedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book_summaries.txt")
	if err := os.WriteFile(path, []byte("## Title: 1984\nA dystopia.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, observe.NewNop())
	w, err := NewWatcher(s, []string{"*.txt"}, observe.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if w.matches(filepath.Join(dir, "notes.md")) {
		t.Error("*.txt pattern should not match notes.md")
	}
	if !w.matches(path) {
		t.Error("*.txt pattern should match the corpus file")
	}
}
