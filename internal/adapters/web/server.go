// Package web serves the scoring HTTP API: the upload endpoints used by the
// browser front end plus a small JSON API for history and diagnostics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corey/rigor/internal/adapters/extract"
	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
)

// Error messages returned to clients.
const (
	msgInvalidFile = "Invalid file."
	msgUnsupported = "Not an accepted file format."
	msgInvalidURL  = "Invalid URL."
	msgTooLarge    = "Upload too large."
	msgScanned     = "This looks like a scanned PDF. Please submit a text PDF."
	msgBadRequest  = "Invalid request."
	msgNotReal     = "Score is not a real number."
	msgNonFinite   = "Score overflowed."
	msgTimeout     = "Request timed out."
	msgInternal    = "Internal error."
)

// Service is what the HTTP API needs from the application.
type Service interface {
	ScoreText(ctx context.Context, source, text string) (*ports.ScoreRecord, error)
	ScoreReader(ctx context.Context, name string, r io.Reader) (*ports.ScoreRecord, error)
	ScoreURL(ctx context.Context, rawURL string) (*ports.ScoreRecord, error)
	Explain(ctx context.Context, text string) (*rigor.Trace, error)
	History(limit int) ([]*ports.ScoreRecord, error)
	Engine() *rigor.Engine
	Health() socket.HealthResult
}

// Options configures a Server.
type Options struct {
	// MaxUploadBytes caps request bodies. Zero means 5 MiB.
	MaxUploadBytes int64
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	AllowedOrigin string
	// PortFile, when set, receives the bound address after Start.
	PortFile string
	Logger   *slog.Logger
}

// Server serves the JSON API over HTTP.
type Server struct {
	svc      Service
	opts     Options
	log      *slog.Logger
	listener net.Listener
	httpSrv  *http.Server
	started  time.Time
	stopOnce sync.Once
}

// NewServer creates an HTTP server backed by svc.
func NewServer(svc Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = extract.DefaultMaxBytes
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, opts: opts, log: log, started: time.Now()}
}

// Handler returns the routed API with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /text", s.handleText)
	mux.HandleFunc("POST /pdf", s.handlePDF)
	mux.HandleFunc("POST /image", s.handleImage)
	mux.HandleFunc("POST /url", s.handleURL)
	mux.HandleFunc("POST /api/explain", s.handleExplain)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/dictionary", s.handleDictionary)
	return s.cors(mux)
}

// Start listens on addr and serves in the background. Writes the bound
// address to the port file when one is configured.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.started = time.Now()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.PortFile != "" {
		os.WriteFile(s.opts.PortFile, []byte(ln.Addr().String()), 0644)
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.opts.PortFile != "" {
			os.Remove(s.opts.PortFile)
		}
	})
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		h.Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type scoreResponse struct {
	Result float64 `json:"result"`
	ID     string  `json:"id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before writing the header. An unencodable value is
// answered with a 500 error body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: msgInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps a scoring error to a status code and client message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	status, msg := http.StatusInternalServerError, msgInternal
	switch {
	case errors.As(err, &maxErr), errors.Is(err, extract.ErrTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, extract.ErrScanned):
		status, msg = http.StatusUnprocessableEntity, msgScanned
	case errors.Is(err, extract.ErrUnsupported):
		status, msg = http.StatusUnsupportedMediaType, msgUnsupported
	case errors.Is(err, extract.ErrFetch):
		status, msg = http.StatusBadRequest, msgInvalidURL
	case errors.Is(err, rigor.ErrComplexResult):
		status, msg = http.StatusUnprocessableEntity, msgNotReal
	case errors.Is(err, rigor.ErrNonFinite):
		status, msg = http.StatusUnprocessableEntity, msgNonFinite
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, msgTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.log.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, msg)
}

// limit caps the body and rejects requests that declare an oversized body.
func (s *Server) limit(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > s.opts.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	return true
}

// decodeBody reads a JSON object into dst, reporting failures to the client.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !s.limit(w, r) {
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return false
	}
	return true
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text *string `json:"text"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Text == nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	rec, err := s.svc.ScoreText(r.Context(), "http:text", *body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Result: rec.Score, ID: rec.ID})
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if !s.limit(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}
	defer file.Close()

	if header.Filename == "" || !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}
	rec, err := s.svc.ScoreReader(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Result: rec.Score, ID: rec.ID})
}

// handleImage rejects uploads: images need OCR, which this service does not do.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnsupportedMediaType, msgUnsupported)
}

func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	}
	rec, err := s.svc.ScoreURL(r.Context(), body.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Result: rec.Score, ID: rec.ID})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	tr, err := s.svc.Explain(r.Context(), body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, socket.NewExplainResult(tr))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.svc.Health()
	if h.Status == "" {
		h.Status = "ok"
	}
	h.Uptime = time.Since(s.started).Round(time.Second).String()
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, msgBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.svc.History(limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []*ports.ScoreRecord{}
	}
	writeJSON(w, http.StatusOK, socket.HistoryResult{Records: recs, Count: len(recs)})
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, socket.NewDictionaryResult(s.svc.Engine()))
}
