package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func startWatcher(t *testing.T, root, quarDir string) *Watcher {
	t.Helper()
	w, err := NewWatcher([]string{root}, quarDir, 64, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go w.Run()
	t.Cleanup(func() { w.Close() })
	return w
}

func waitForEvent(t *testing.T, w *Watcher, path string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				t.Fatal("event queue closed before the expected event")
			}
			if ev.Path == path {
				return
			}
		case <-deadline:
			t.Fatalf("no event for %s within deadline", path)
		}
	}
}

func TestWatcherDeliversCreate(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, filepath.Join(t.TempDir(), "quarantine"))

	path := filepath.Join(root, "new.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w, path)
}

func TestWatcherFollowsNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, filepath.Join(t.TempDir(), "quarantine"))

	sub := filepath.Join(root, "incoming")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to pick up the directory create event and
	// register the new watch.
	time.Sleep(500 * time.Millisecond)

	path := filepath.Join(sub, "nested.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w, path)
}

func TestWatcherIgnoresQuarantineRoot(t *testing.T) {
	root := t.TempDir()
	quarDir := filepath.Join(root, "quarantine")
	if err := os.Mkdir(quarDir, 0o755); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, root, quarDir)

	if err := os.WriteFile(filepath.Join(quarDir, "held.txt"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if strings.HasPrefix(ev.Path, quarDir) {
			t.Errorf("quarantine path leaked into the queue: %s", ev.Path)
		}
	case <-time.After(500 * time.Millisecond):
		// No event is the expected outcome.
	}
}

func TestWatcherQueueCloseOnShutdown(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher([]string{root}, filepath.Join(t.TempDir(), "quarantine"), 4, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	if _, ok := <-w.Events(); ok {
		t.Error("event queue should be closed after shutdown")
	}
}
