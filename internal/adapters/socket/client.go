package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/corey/rigor/internal/ports"
)

// defaultTimeout bounds a request/response round trip unless a method
// needs longer.
const defaultTimeout = 10 * time.Second

// Client connects to the rigor daemon over a Unix socket. One connection
// per request; safe for concurrent use.
type Client struct {
	sockPath string
	seq      atomic.Uint64
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Score asks the daemon to score and record the input described by p.
// URL scoring waits for the download, so it gets the long timeout.
func (c *Client) Score(p ScoreParams) (*ports.ScoreRecord, error) {
	timeout := defaultTimeout
	if p.URL != "" {
		timeout = requestTimeout + 5*time.Second
	}
	return invoke[ports.ScoreRecord](c, MethodScore, p, timeout)
}

// Explain returns the step-by-step trace for text without recording it.
func (c *Client) Explain(text string) (*ExplainResult, error) {
	return invoke[ExplainResult](c, MethodExplain, ScoreParams{Text: text}, defaultTimeout)
}

// History returns up to limit recorded scores, newest first.
func (c *Client) History(limit int) (*HistoryResult, error) {
	return invoke[HistoryResult](c, MethodHistory, HistoryParams{Limit: limit}, defaultTimeout)
}

// Dictionary describes the daemon's loaded dictionary.
func (c *Client) Dictionary() (*DictionaryResult, error) {
	return invoke[DictionaryResult](c, MethodDictionary, nil, defaultTimeout)
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	return invoke[HealthResult](c, MethodHealth, nil, defaultTimeout)
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(c.request(MethodShutdown, nil))
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// invoke sends one request and decodes its result into a T.
func invoke[T any](c *Client, method string, params any, timeout time.Duration) (*T, error) {
	resp, err := c.callWithTimeout(c.request(method, params), timeout)
	if err != nil {
		return nil, err
	}
	var out T
	if err := decodeResult(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}

func (c *Client) request(method string, params any) Request {
	return Request{ID: strconv.FormatUint(c.seq.Add(1), 10), Method: method, Params: params}
}

// decodeResult re-decodes the generic Result into dst.
func decodeResult(resp *Response, dst any) error {
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return json.Unmarshal(raw, dst)
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, defaultTimeout)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("write %s: %w", req.Method, err)
	}

	// Explain traces for long documents can be large.
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Method, err)
		}
		return nil, errors.New("daemon closed the connection without a response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// Requests the server could not parse are answered without an ID.
	if resp.Error != "" && (resp.ID == req.ID || resp.ID == "") {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}
