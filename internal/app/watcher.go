package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corey/rigor/internal/adapters/extract"
	fsw "github.com/corey/rigor/internal/adapters/fsnotify"
	"github.com/corey/rigor/internal/ports"
)

// ScoreFunc receives the outcome of scoring one changed document.
type ScoreFunc func(path string, rec *ports.ScoreRecord, err error)

// Watch scores every readable document under dir whenever it is written.
// onScore may be nil; results are always logged. Only one Watch may be
// active per App; Stop ends it.
func (a *App) Watch(dir string, onScore ScoreFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Watcher != nil {
		return fmt.Errorf("already watching")
	}

	w, err := fsw.NewWatcher(extract.Extensions()...)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Watch(dir, func(path string) { a.onFileChanged(path, onScore) }); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	a.Watcher = w
	a.log.Info("watching", "dir", dir)
	return nil
}

// onFileChanged scores one changed document. Files removed before the
// debounce fired and files inside the data directory are skipped.
func (a *App) onFileChanged(path string, onScore ScoreFunc) {
	if a.inDataDir(path) {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}

	rec, err := a.ScoreFile(context.Background(), path)
	if err != nil {
		a.log.Warn("score changed file", "path", path, "err", err)
	}
	if onScore != nil {
		onScore(path, rec, err)
	}
}

func (a *App) inDataDir(path string) bool {
	root, err := filepath.Abs(a.Paths.Root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
