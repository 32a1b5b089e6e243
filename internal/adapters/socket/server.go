package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
)

// requestTimeout bounds a single request, URL downloads included.
const requestTimeout = 60 * time.Second

// maxRequestBytes caps one request line; inline text may be large.
const maxRequestBytes = 8 * 1024 * 1024

// ErrRequestTooLarge is reported when a request line exceeds maxRequestBytes.
var ErrRequestTooLarge = errors.New("request too large")

// Service is what the daemon exposes over the socket.
// Implementations must be safe for concurrent use.
type Service interface {
	Score(ctx context.Context, p ScoreParams) (*ports.ScoreRecord, error)
	Explain(ctx context.Context, text string) (*rigor.Trace, error)
	History(limit int) ([]*ports.ScoreRecord, error)
	Engine() *rigor.Engine
	Health() HealthResult
}

// Server is the daemon that listens on a Unix socket and serves scoring requests.
type Server struct {
	svc      Service
	listener net.Listener
	sockPath string
	started  time.Time
	log      *slog.Logger

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by svc.
func NewServer(svc Service, sockPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:        svc,
		sockPath:   sockPath,
		log:        log,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket, remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for open connections and removes the socket file.
// Idempotent: safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), maxRequestBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}

	if errors.Is(scanner.Err(), bufio.ErrTooLong) {
		s.log.Debug("request too large", "limit", maxRequestBytes)
		s.writeResponse(conn, Response{Error: ErrRequestTooLarge.Error()})
		// Drain the rest of the line so the client's write completes and it
		// can read the reply.
		conn.SetReadDeadline(time.Now().Add(time.Second))
		io.Copy(io.Discard, conn)
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodScore:
		return s.handleScore(req)
	case MethodExplain:
		return s.handleExplain(req)
	case MethodHistory:
		return s.handleHistory(req)
	case MethodDictionary:
		return Response{ID: req.ID, Result: NewDictionaryResult(s.svc.Engine())}
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into dst.
func decodeParams(params, dst any) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *Server) handleScore(req Request) Response {
	var params ScoreParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid score params"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	rec, err := s.svc.Score(ctx, params)
	if err != nil {
		s.log.Debug("score failed", "id", req.ID, "err", err)
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: rec}
}

func (s *Server) handleExplain(req Request) Response {
	var params ScoreParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid explain params"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	tr, err := s.svc.Explain(ctx, params.Text)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: NewExplainResult(tr)}
}

func (s *Server) handleHistory(req Request) Response {
	var params HistoryParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid history params"}
	}
	recs, err := s.svc.History(params.Limit)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	if recs == nil {
		recs = []*ports.ScoreRecord{}
	}
	return Response{ID: req.ID, Result: HistoryResult{Records: recs, Count: len(recs)}}
}

func (s *Server) handleHealth(req Request) Response {
	h := s.svc.Health()
	if h.Status == "" {
		h.Status = "ok"
	}
	h.Uptime = time.Since(s.started).Round(time.Second).String()
	return Response{ID: req.ID, Result: h}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("marshal response", "id", resp.ID, "err", err)
		data, _ = json.Marshal(Response{ID: resp.ID, Error: "unencodable result: " + err.Error()})
	}
	data = append(data, '\n')
	conn.Write(data)
}
