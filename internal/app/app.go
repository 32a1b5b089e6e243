// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the rigor daemon (create, start, stop)
// and the scoring operations shared by the CLI, the socket and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/rigor/dictionary"
	"github.com/corey/rigor/internal/adapters/bbolt"
	"github.com/corey/rigor/internal/adapters/extract"
	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/adapters/sqlite"
	"github.com/corey/rigor/internal/adapters/web"
	"github.com/corey/rigor/internal/config"
	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
)

// ErrNoHistory is returned by History when no store is configured.
var ErrNoHistory = errors.New("history store disabled")

// Kind of the record produced by ScoreURL, whatever format was downloaded.
const kindURL = "url"

// App is the top-level container wiring all components together.
type App struct {
	Root     string
	Settings *config.Config
	Paths    *Paths

	Extractor *extract.Extractor
	Store     ports.HistoryStore // nil when store is "none"
	Watcher   ports.Watcher      // nil until Watch
	Server    *socket.Server
	WebServer *web.Server

	engine  *rigor.Engine
	log     *slog.Logger
	ids     *idSource
	now     func() time.Time
	mu      sync.Mutex // guards Watcher
	started time.Time
}

// Config holds initialization parameters for the App.
type Config struct {
	Root     string         // working root; keys the socket path (default ".")
	Settings *config.Config // default: config.Default()
	Logger   *slog.Logger   // default: slog.Default()
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg Config) (*App, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := cfg.Settings

	engine, err := NewEngine(s)
	if err != nil {
		return nil, err
	}

	store, err := openStore(s)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Root:      cfg.Root,
		Settings:  s,
		Paths:     NewPaths(s.DataDir),
		Extractor: newExtractor(s),
		Store:     store,
		engine:    engine,
		log:       cfg.Logger,
		ids:       newIDSource(),
		now:       time.Now,
	}

	a.Server = socket.NewServer(a, socket.SocketPath(cfg.Root), cfg.Logger)
	a.WebServer = web.NewServer(a, web.Options{
		MaxUploadBytes: s.MaxUploadBytes,
		AllowedOrigin:  s.AllowedOrigin,
		PortFile:       a.Paths.PortFile,
		Logger:         cfg.Logger,
	})
	return a, nil
}

// NewEngine builds the scoring engine the settings describe. The embedded
// dictionary with default options shares rigor.Default().
func NewEngine(s *config.Config) (*rigor.Engine, error) {
	wholeWords := s.WholeWords == nil || *s.WholeWords
	if s.Dictionary == "" && s.InitialScore == nil && s.Policy() == rigor.PowerReal && wholeWords {
		e, err := rigor.Default()
		if err != nil {
			return nil, fmt.Errorf("load default dictionary: %w", err)
		}
		return e, nil
	}

	var (
		d   *rigor.Dictionary
		err error
	)
	if s.Dictionary == "" {
		d, err = rigor.LoadDictionary(dictionary.FS, dictionary.DefaultPath)
	} else {
		d, err = rigor.LoadDictionaryFile(s.Dictionary)
	}
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	if s.InitialScore != nil {
		d.InitialScore = *s.InitialScore
	}
	e, err := rigor.Build(d, rigor.WithPowerPolicy(s.Policy()), rigor.WithWholeWords(wholeWords))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return e, nil
}

func newExtractor(s *config.Config) *extract.Extractor {
	opts := []extract.Option{}
	if s.MaxUploadBytes > 0 {
		opts = append(opts, extract.WithMaxBytes(s.MaxUploadBytes))
	}
	if s.MinWordsPerPage != nil {
		opts = append(opts, extract.WithMinWordsPerPage(*s.MinWordsPerPage))
	}
	if s.FetchTimeout > 0 {
		opts = append(opts, extract.WithHTTPClient(&http.Client{Timeout: s.FetchTimeout}))
	}
	return extract.New(opts...)
}

func openStore(s *config.Config) (ports.HistoryStore, error) {
	if s.Store == config.StoreNone {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0755); err != nil {
		return nil, err
	}
	switch s.Store {
	case config.StoreSQLite:
		st, err := sqlite.Open(context.Background(), s.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := bbolt.NewStore(s.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// Start begins serving the socket and, when an address is configured, the
// HTTP API. The HTTP API is non-fatal: a busy port only logs a warning.
func (a *App) Start() error {
	a.started = a.now()
	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if a.Settings.HTTPEnabled() {
		if err := a.WebServer.Start(a.Settings.HTTPAddr); err != nil {
			a.log.Warn("HTTP API unavailable", "addr", a.Settings.HTTPAddr, "err", err)
		}
	}
	return nil
}

// Stop gracefully shuts down all services and closes the store. Safe to call
// on an App that was never started.
func (a *App) Stop() error {
	a.mu.Lock()
	w := a.Watcher
	a.Watcher = nil
	a.mu.Unlock()
	if w != nil {
		w.Stop()
	}
	a.WebServer.Stop()
	a.Server.Stop()
	return a.Close()
}

// Close releases the store without touching the servers. Used by one-shot
// CLI commands that never call Start.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// ScoreText scores inline text. An empty source is recorded as "-".
func (a *App) ScoreText(ctx context.Context, source, text string) (*ports.ScoreRecord, error) {
	if source == "" {
		source = "-"
	}
	return a.score(ctx, source, string(extract.KindText), text)
}

// ScoreFile extracts and scores a local document.
func (a *App) ScoreFile(ctx context.Context, path string) (*ports.ScoreRecord, error) {
	doc, err := a.Extractor.FromFile(path)
	if err != nil {
		return nil, err
	}
	return a.score(ctx, path, string(doc.Kind), doc.Text)
}

// ScoreReader extracts and scores an uploaded document; name picks the format.
func (a *App) ScoreReader(ctx context.Context, name string, r io.Reader) (*ports.ScoreRecord, error) {
	doc, err := a.Extractor.FromReader(name, r)
	if err != nil {
		return nil, err
	}
	return a.score(ctx, name, string(doc.Kind), doc.Text)
}

// ScoreURL downloads, extracts and scores a remote document.
func (a *App) ScoreURL(ctx context.Context, rawURL string) (*ports.ScoreRecord, error) {
	doc, err := a.Extractor.FromURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return a.score(ctx, rawURL, kindURL, doc.Text)
}

// Score dispatches a socket request to the matching Score* method.
func (a *App) Score(ctx context.Context, p socket.ScoreParams) (*ports.ScoreRecord, error) {
	switch {
	case p.URL != "":
		return a.ScoreURL(ctx, p.URL)
	case p.Path != "":
		return a.ScoreFile(ctx, p.Path)
	default:
		return a.ScoreText(ctx, p.Source, p.Text)
	}
}

func (a *App) score(ctx context.Context, source, kind, raw string) (*ports.ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr, err := a.Explain(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", source, err)
	}

	at := a.now().UTC()
	rec := &ports.ScoreRecord{
		ID:      a.ids.New(at),
		Source:  source,
		Kind:    kind,
		Initial: tr.Initial,
		Score:   tr.Final,
		Matches: len(tr.Steps),
		Markers: tr.Counts(),
		Words:   tr.Words,
		At:      at,
	}
	if a.Store != nil {
		if err := a.Store.Save(rec); err != nil {
			return rec, fmt.Errorf("save record: %w", err)
		}
	}
	a.log.Info("scored", "source", source, "kind", kind, "score", rec.Score, "matches", rec.Matches, "id", rec.ID)
	return rec, nil
}

// Explain normalises raw text and returns the step-by-step trace from the
// dictionary's initial score. Nothing is recorded.
func (a *App) Explain(ctx context.Context, raw string) (*rigor.Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.engine.Explain(rigor.Normalize(raw), a.engine.InitialScore())
}

// Engine returns the scoring engine.
func (a *App) Engine() *rigor.Engine {
	return a.engine
}

// History returns up to limit records, newest first. limit <= 0 means all.
func (a *App) History(limit int) ([]*ports.ScoreRecord, error) {
	if a.Store == nil {
		return nil, ErrNoHistory
	}
	return a.Store.List(limit)
}

// Forget deletes one history record.
func (a *App) Forget(id string) error {
	if a.Store == nil {
		return ErrNoHistory
	}
	if _, err := a.Store.Get(id); err != nil {
		return err
	}
	return a.Store.Delete(id)
}

// Health reports engine and store state. Uptime is filled by the server.
func (a *App) Health() socket.HealthResult {
	h := socket.HealthResult{
		Status:   "ok",
		Patterns: a.engine.Automaton().PatternCount(),
		Store:    a.Settings.Store,
		HTTP:     a.WebServer.Addr(),
	}
	if c, ok := a.Store.(interface{ Count() (int, error) }); ok {
		n, err := c.Count()
		if err != nil {
			h.Status = "degraded"
			a.log.Warn("count records", "err", err)
		}
		h.Records = n
	}
	return h
}

// Uptime returns how long the app has been started, or zero.
func (a *App) Uptime() time.Duration {
	if a.started.IsZero() {
		return 0
	}
	return a.now().Sub(a.started)
}
