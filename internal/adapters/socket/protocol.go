// Package socket implements a JSON-over-Unix-socket protocol for the rigor daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
)

// SocketPath returns the Unix socket path for a given working root.
// Format: {tmp}/rigor-{first12hex}.sock
func SocketPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	h := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), fmt.Sprintf("rigor-%x.sock", h[:6]))
}

// Method names for the protocol.
const (
	MethodScore      = "score"
	MethodExplain    = "explain"
	MethodHistory    = "history"
	MethodDictionary = "dictionary"
	MethodHealth     = "health"
	MethodShutdown   = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ScoreParams selects what to score. Exactly one of Text, Path or URL is used,
// checked in the order URL, Path, Text.
type ScoreParams struct {
	Text   string `json:"text,omitempty"`
	Path   string `json:"path,omitempty"`
	URL    string `json:"url,omitempty"`
	Source string `json:"source,omitempty"` // label for Text inputs
}

// ExplainResult is the result of an explain request.
type ExplainResult struct {
	Initial float64    `json:"initial"`
	Final   float64    `json:"final"`
	Words   int        `json:"words"`
	Steps   []StepInfo `json:"steps"`
}

// StepInfo is one operator application (wire format).
type StepInfo struct {
	Phrase string  `json:"phrase"`
	Op     string  `json:"op"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// HistoryParams is the params for a history request.
type HistoryParams struct {
	Limit int `json:"limit"`
}

// HistoryResult is the result of a history request.
type HistoryResult struct {
	Records []*ports.ScoreRecord `json:"records"`
	Count   int                  `json:"count"`
}

// DictionaryResult describes the loaded dictionary.
type DictionaryResult struct {
	Version      int         `json:"version"`
	InitialScore float64     `json:"initial_score"`
	Policy       string      `json:"policy"`
	WholeWords   bool        `json:"whole_words"`
	Entries      []DictEntry `json:"entries"`
	Nodes        int         `json:"nodes"`
	Shadowed     []string    `json:"shadowed,omitempty"`
}

// DictEntry is one phrase and its operator (wire format).
type DictEntry struct {
	Phrase string `json:"phrase"`
	Op     string `json:"op"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	Patterns int    `json:"patterns"`
	Records  int    `json:"records"`
	Store    string `json:"store"`
	HTTP     string `json:"http,omitempty"`
	Uptime   string `json:"uptime"`
}

// NewExplainResult converts a trace to wire format.
func NewExplainResult(tr *rigor.Trace) *ExplainResult {
	res := &ExplainResult{
		Initial: tr.Initial,
		Final:   tr.Final,
		Words:   tr.Words,
		Steps:   make([]StepInfo, len(tr.Steps)),
	}
	for i, s := range tr.Steps {
		res.Steps[i] = StepInfo{
			Phrase: s.Phrase,
			Op:     s.Op.String(),
			Start:  s.Start,
			End:    s.End,
			Before: s.Before,
			After:  s.After,
		}
	}
	return res
}

// NewDictionaryResult describes e.
func NewDictionaryResult(e *rigor.Engine) *DictionaryResult {
	d := e.Dictionary()
	res := &DictionaryResult{
		Version:      d.Version,
		InitialScore: d.InitialScore,
		Policy:       e.Policy().String(),
		WholeWords:   e.WholeWords(),
		Entries:      make([]DictEntry, len(d.Entries)),
		Nodes:        e.Automaton().Len(),
	}
	for i, en := range d.Entries {
		res.Entries[i] = DictEntry{Phrase: en.Phrase, Op: en.Op.String()}
	}
	for _, id := range e.Automaton().Shadowed() {
		res.Shadowed = append(res.Shadowed, fmt.Sprintf("%d:%s", id, d.Entries[id].Phrase))
	}
	return res
}
