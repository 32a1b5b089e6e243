package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/corey/rigor/internal/adapters/extract"
	"github.com/corey/rigor/internal/adapters/extract/extracttest"
	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HTTP API: upload endpoints, JSON diagnostics, CORS and size limits
// =============================================================================

// fakeService scores with the embedded dictionary and a real extractor, and
// keeps records in memory.
type fakeService struct {
	engine *rigor.Engine
	ext    *extract.Extractor
	url    func(string) (*extract.Document, error)

	mu      sync.Mutex
	records []*ports.ScoreRecord
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	e, err := rigor.Default()
	require.NoError(t, err)
	return &fakeService{engine: e, ext: extract.New()}
}

func (f *fakeService) record(source, kind, text string) (*ports.ScoreRecord, error) {
	tr, err := f.Explain(context.Background(), text)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &ports.ScoreRecord{
		ID:      source,
		Source:  source,
		Kind:    kind,
		Initial: tr.Initial,
		Score:   tr.Final,
		Matches: len(tr.Steps),
		Markers: tr.Counts(),
		Words:   tr.Words,
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeService) ScoreText(_ context.Context, source, text string) (*ports.ScoreRecord, error) {
	return f.record(source, "text", text)
}

func (f *fakeService) ScoreReader(_ context.Context, name string, r io.Reader) (*ports.ScoreRecord, error) {
	doc, err := f.ext.FromReader(name, r)
	if err != nil {
		return nil, err
	}
	return f.record(name, string(doc.Kind), doc.Text)
}

func (f *fakeService) ScoreURL(_ context.Context, rawURL string) (*ports.ScoreRecord, error) {
	doc, err := f.url(rawURL)
	if err != nil {
		return nil, err
	}
	return f.record(rawURL, string(doc.Kind), doc.Text)
}

func (f *fakeService) Explain(_ context.Context, text string) (*rigor.Trace, error) {
	return f.engine.Explain(rigor.Normalize(text), f.engine.InitialScore())
}

func (f *fakeService) History(limit int) ([]*ports.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ports.ScoreRecord
	for i := len(f.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}

func (f *fakeService) Engine() *rigor.Engine { return f.engine }

func (f *fakeService) Health() socket.HealthResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return socket.HealthResult{
		Patterns: f.engine.Automaton().PatternCount(),
		Records:  len(f.records),
		Store:    "memory",
	}
}

func setupTestServer(t *testing.T, opts Options) (*httptest.Server, *fakeService) {
	t.Helper()
	svc := newFakeService(t)
	ts := httptest.NewServer(NewServer(svc, opts).Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postFile(t *testing.T, url, field, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeScore(t *testing.T, resp *http.Response) (float64, string) {
	t.Helper()
	var body struct {
		Result *float64 `json:"result"`
		Error  string   `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	if body.Result == nil {
		return 0, body.Error
	}
	return *body.Result, body.Error
}

func TestText(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/text", `{"text": "Therefore, QED."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	score, errMsg := decodeScore(t, resp)
	assert.Empty(t, errMsg)
	assert.Equal(t, 150.0, score)
}

func TestText_EmptyKeepsInitialScore(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/text", `{"text": ""}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	score, _ := decodeScore(t, resp)
	assert.Equal(t, rigor.DefaultInitialScore, score)
}

func TestText_BadRequests(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	for _, body := range []string{`{}`, `not json`, `{"text": 5}`} {
		resp := postJSON(t, ts.URL+"/text", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		_, errMsg := decodeScore(t, resp)
		assert.Equal(t, msgBadRequest, errMsg, body)
	}
}

func TestText_TooLarge(t *testing.T) {
	ts, _ := setupTestServer(t, Options{MaxUploadBytes: 64})

	body := `{"text": "` + strings.Repeat("qed ", 40) + `"}`
	resp := postJSON(t, ts.URL+"/text", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "Upload too large.", errMsg)
}

func TestPDF(t *testing.T) {
	ts, svc := setupTestServer(t, Options{})

	page := "Lemma. " + extracttest.Words("then", 20) + " QED"
	resp := postFile(t, ts.URL+"/pdf", "file", "proof.pdf", extracttest.PDF(page))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	score, errMsg := decodeScore(t, resp)
	assert.Empty(t, errMsg)
	// 99 + 10 (lemma) + 20 (then) + 50 (qed)
	assert.Equal(t, 179.0, score)

	recs, _ := svc.History(1)
	require.Len(t, recs, 1)
	assert.Equal(t, "pdf", recs[0].Kind)
}

func TestPDF_InvalidFile(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp := postFile(t, ts.URL+"/pdf", "file", "proof.txt", []byte("qed"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "Invalid file.", errMsg)

	// Wrong field name.
	resp = postFile(t, ts.URL+"/pdf", "upload", "proof.pdf", extracttest.PDF("qed"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Not multipart at all.
	resp = postJSON(t, ts.URL+"/pdf", `{"file": "proof.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPDF_Scanned(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp := postFile(t, ts.URL+"/pdf", "file", "scan.pdf", extracttest.PDF("Figure 1", "Figure 2"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "This looks like a scanned PDF. Please submit a text PDF.", errMsg)
}

func TestPDF_TooLarge(t *testing.T) {
	ts, _ := setupTestServer(t, Options{MaxUploadBytes: 256})

	resp := postFile(t, ts.URL+"/pdf", "file", "big.pdf", bytes.Repeat([]byte("x"), 1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "Upload too large.", errMsg)
}

func TestImage_Unsupported(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp := postFile(t, ts.URL+"/image", "file", "board.png", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "Not an accepted file format.", errMsg)
}

func TestURL(t *testing.T) {
	ts, svc := setupTestServer(t, Options{})
	svc.url = func(u string) (*extract.Document, error) {
		switch {
		case strings.HasSuffix(u, ".png"):
			return nil, extract.ErrUnsupported
		case strings.HasPrefix(u, "https://"):
			return &extract.Document{Kind: extract.KindPDF, Text: "By symmetry, QED."}, nil
		default:
			return nil, extract.ErrFetch
		}
	}

	resp := postJSON(t, ts.URL+"/url", `{"url": "https://example.org/paper.pdf"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	score, _ := decodeScore(t, resp)
	assert.Equal(t, 179.0, score)

	resp = postJSON(t, ts.URL+"/url", `{"url": "https://example.org/scan.png"}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	_, errMsg := decodeScore(t, resp)
	assert.Equal(t, "Not an accepted file format.", errMsg)

	resp = postJSON(t, ts.URL+"/url", `{"url": "gopher://example.org/paper.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_, errMsg = decodeScore(t, resp)
	assert.Equal(t, "Invalid URL.", errMsg)

	resp = postJSON(t, ts.URL+"/url", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	ts, _ := setupTestServer(t, Options{AllowedOrigin: "https://keanemind.github.io"})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/text", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://keanemind.github.io", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, GET, OPTIONS, PUT", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Requested-With", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "Origin", resp.Header.Get("Vary"))

	// Error responses carry the headers too.
	resp = postJSON(t, ts.URL+"/text", `{}`)
	assert.Equal(t, "https://keanemind.github.io", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestExplainEndpoint(t *testing.T) {
	ts, svc := setupTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/api/explain", `{"text": "Clearly. Hence."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result socket.ExplainResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 89.0, result.Final)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "clearly", result.Steps[0].Phrase)
	assert.Equal(t, "hence", result.Steps[1].Phrase)

	recs, _ := svc.History(0)
	assert.Empty(t, recs)
}

func TestOverflowIsUnprocessable(t *testing.T) {
	ts, svc := setupTestServer(t, Options{})
	body := `{"text": "` + strings.Repeat("wlog ", 200) + `"}`

	for _, path := range []string{"/text", "/api/explain"} {
		resp := postJSON(t, ts.URL+path, body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)
		_, errMsg := decodeScore(t, resp)
		assert.Equal(t, msgNonFinite, errMsg, path)
	}

	recs, _ := svc.History(0)
	assert.Empty(t, recs)
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, scoreResponse{Result: math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgInternal, body.Error)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result socket.HealthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 27, result.Patterns)
	assert.NotEmpty(t, result.Uptime)
}

func TestHistoryEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	for _, text := range []string{"qed", "lemma", "thus"} {
		postJSON(t, ts.URL+"/text", `{"text": "`+text+`"}`)
	}

	resp, err := http.Get(ts.URL + "/api/history?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	var result socket.HistoryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, 2, result.Count)
	assert.Equal(t, 100.0, result.Records[0].Score)
	assert.Equal(t, 109.0, result.Records[1].Score)

	resp2, err := http.Get(ts.URL + "/api/history?limit=abc")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestDictionaryEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/api/dictionary")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	var result socket.DictionaryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, rigor.DefaultInitialScore, result.InitialScore)
	assert.Len(t, result.Entries, 27)
	assert.True(t, result.WholeWords)
}

func TestStartStop(t *testing.T) {
	srv := NewServer(newFakeService(t), Options{PortFile: t.TempDir() + "/http.addr"})
	require.NoError(t, srv.Start("127.0.0.1:0"))
	assert.True(t, strings.HasPrefix(srv.URL(), "http://127.0.0.1:"))

	resp, err := http.Get(srv.URL() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	srv.Stop()
	srv.Stop()
}
