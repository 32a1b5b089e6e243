package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// fsnotify Watcher Adapter: detect changed documents, trigger rescoring
// Expectation: writes to scorable documents fire the callback promptly;
// editor noise, hidden files and unknown extensions never do.
// =============================================================================

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dir string, exts ...string) <-chan string {
	t.Helper()
	w, err := NewWatcher(exts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 16)
	require.NoError(t, w.Watch(dir, func(path string) {
		select {
		case changed <- path:
		default:
		}
	}))
	time.Sleep(50 * time.Millisecond)
	return changed
}

func TestWatcher_DetectsDocumentChange(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "proof.tex")
	require.NoError(t, os.WriteFile(doc, []byte("Suppose x."), 0644))

	changed := startWatcher(t, dir)
	require.NoError(t, os.WriteFile(doc, []byte("Suppose x. Therefore y. QED"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for document change")
	assert.Equal(t, doc, path)
}

func TestWatcher_DetectsNewDocument(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	doc := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Lemma 1"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for new document")
	assert.Equal(t, doc, path)
}

func TestWatcher_DetectsDocumentInNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	sub := filepath.Join(dir, "chapter1")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	doc := filepath.Join(sub, "proof.txt")
	require.NoError(t, os.WriteFile(doc, []byte("qed"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback inside new subdirectory")
	assert.Equal(t, doc, path)
}

func TestWatcher_IgnoresNonDocuments(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))

	changed := startWatcher(t, dir)

	os.WriteFile(filepath.Join(gitDir, "notes.txt"), []byte("ref"), 0644)
	os.WriteFile(filepath.Join(dir, ".proof.tex.swp"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "proof.tex~"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644)
	os.WriteFile(filepath.Join(dir, "figure.png"), []byte("x"), 0644)

	_, ok := waitForCallback(changed, 500*time.Millisecond)
	assert.False(t, ok, "should not have received callback for ignored files")

	doc := filepath.Join(dir, "PROOF.TXT")
	require.NoError(t, os.WriteFile(doc, []byte("clearly"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for document with upper-case extension")
	assert.Equal(t, doc, path)
}

func TestWatcher_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir, ".tex")

	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644)
	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, ".md is not in the configured set")

	doc := filepath.Join(dir, "thesis.tex")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0644))
	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok)
	assert.Equal(t, doc, path)
}

func TestWatcher_StopCleanup(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)

	callCount := 0
	var mu sync.Mutex
	err = w.Watch(dir, func(path string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Stop())

	mu.Lock()
	countAfterStop := callCount
	mu.Unlock()

	os.WriteFile(filepath.Join(dir, "after_stop.txt"), []byte("nope"), 0644)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	countAfterWrite := callCount
	mu.Unlock()

	assert.Equal(t, countAfterStop, countAfterWrite, "callbacks fired after Stop()")

	// Double-stop should be safe
	assert.NoError(t, w.Stop())
}

func TestWatcher_Accepts(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	sep := string(filepath.Separator)
	assert.True(t, w.accepts(sep+"a"+sep+"b.pdf"))
	assert.True(t, w.accepts(sep+"a"+sep+"b.HTML"))
	assert.False(t, w.accepts(sep+"a"+sep+"b.docx"))
	assert.False(t, w.accepts(sep+"a"+sep+".git"+sep+"b.txt"))
	assert.False(t, w.accepts(sep+"a"+sep+".hidden.txt"))
}
