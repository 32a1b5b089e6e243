// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a directory of documents, passes through only files
// with a scorable extension, and debounces rapid events (editors often write
// several times per save).
package fsnotify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipDirs are never descended into or reported from.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	".rigor":       true,
	"_minted":      true,
}

// DefaultExtensions are the document types scored when NewWatcher is given none.
var DefaultExtensions = []string{".txt", ".md", ".tex", ".pdf", ".html", ".htm"}

// quietPeriod suppresses repeat events for one file; editors often write
// several times per save.
const quietPeriod = 50 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw   *fsnotify.Watcher
	exts map[string]bool

	// lastSeen is owned by the event loop goroutine.
	lastSeen map[string]time.Time

	done     chan struct{}
	loop     sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// NewWatcher creates a watcher that reports changes to files with one of
// exts (lower case, leading dot). With no exts, DefaultExtensions apply.
func NewWatcher(exts ...string) (*Watcher, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		fw:       fw,
		exts:     set,
		lastSeen: make(map[string]time.Time),
		done:     make(chan struct{}),
	}, nil
}

// Watch starts monitoring dir and every subdirectory not in skipDirs.
// onChange receives the absolute path of each written or created document
// and runs on the watcher's goroutine.
func (w *Watcher) Watch(dir string, onChange func(path string)) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.addTree(root); err != nil {
		return err
	}

	w.loop.Add(1)
	go func() {
		defer w.loop.Done()
		for {
			select {
			case ev, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if path, ok := w.filter(ev); ok {
					onChange(path)
				}
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				slog.Warn("watcher error", "err", err)
			case <-w.done:
				return
			}
		}
	}()
	return nil
}

// addTree registers root and its subdirectories. Unreadable entries are skipped.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return nil
		case !d.IsDir():
			return nil
		case path != root && skipDirs[d.Name()]:
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// filter turns a raw event into a document path worth scoring. Newly
// created directories are added to the watch list and never reported.
func (w *Watcher) filter(ev fsnotify.Event) (string, bool) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !skipDirs[info.Name()] {
				if err := w.addTree(ev.Name); err != nil {
					slog.Warn("watch directory", "path", ev.Name, "err", err)
				}
			}
			return "", false
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return "", false
	}
	if !w.accepts(ev.Name) {
		return "", false
	}

	now := time.Now()
	if last, ok := w.lastSeen[ev.Name]; ok && now.Sub(last) < quietPeriod {
		return "", false
	}
	w.lastSeen[ev.Name] = now
	return ev.Name, true
}

// Stop ends monitoring, waits for the event loop to exit and releases the
// underlying watcher. Later calls return the first call's result.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.stopErr = w.fw.Close()
		w.loop.Wait()
	})
	return w.stopErr
}

// accepts reports whether path is a document the watcher reports.
func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if skipDirs[part] {
			return false
		}
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}
