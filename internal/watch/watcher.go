package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event is one raw change notification handed to the worker pool.
type Event struct {
	Path string
}

// Watcher adapts filesystem notifications into a bounded event queue. Each
// configured root is watched recursively; watches are added for directories
// created while running. When the queue is full events are dropped with a
// warning rather than blocking notification delivery.
type Watcher struct {
	fw             *fsnotify.Watcher
	roots          []string
	quarantineRoot string
	events         chan Event
	log            *zap.Logger
}

func NewWatcher(roots []string, quarantineRoot string, queueSize int, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:             fw,
		quarantineRoot: filepath.Clean(quarantineRoot),
		events:         make(chan Event, queueSize),
		log:            log,
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fw.Close()
			return nil, err
		}
		abs = filepath.Clean(abs)
		if err := w.addRecursive(abs); err != nil {
			fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Events returns the queue consumed by the worker pool. It is closed when
// Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run pumps notifications into the queue until Close is called.
func (w *Watcher) Run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops the underlying watcher; Run drains and returns.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	path := filepath.Clean(ev.Name)
	if w.excluded(path) || !w.contained(path) {
		return
	}

	// New directories need their own watch before files appear in them.
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			if err := w.addRecursive(path); err != nil {
				w.log.Warn("failed to watch new directory",
					zap.String("path", path), zap.Error(err))
			}
		}
		return
	}

	select {
	case w.events <- Event{Path: path}:
	default:
		w.log.Warn("event queue full, dropping event", zap.String("path", path))
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(filepath.Clean(path)) {
			return fs.SkipDir
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) excluded(path string) bool {
	return path == w.quarantineRoot ||
		strings.HasPrefix(path, w.quarantineRoot+string(filepath.Separator))
}

// contained reports whether the path falls under a configured root; stray
// notifications outside them are ignored.
func (w *Watcher) contained(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
