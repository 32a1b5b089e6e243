package extract

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corey/rigor/internal/adapters/extract/extracttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Document extraction: text, HTML, PDF text layers, URL downloads
// Expectation: readable formats yield their text; images, scans and
// oversized inputs fail with the matching sentinel error.
// =============================================================================

var proofPage = "Suppose n is even. Then n = 2k for some k. " +
	extracttest.Words("therefore", 10) + " by symmetry the claim holds. QED"

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"proof.txt":     KindText,
		"notes.MD":      KindText,
		"thesis.tex":    KindText,
		"page.html":     KindHTML,
		"page.htm":      KindHTML,
		"paper.PDF":     KindPDF,
		"scan.jpeg":     KindImage,
		"dir/scan.tiff": KindImage,
	}
	for name, want := range tests {
		got, err := KindOf(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"paper.docx", "noext", "archive.tar.gz"} {
		_, err := KindOf(name)
		assert.ErrorIs(t, err, ErrUnsupported, name)
	}
}

func TestExtensions_ExcludeImages(t *testing.T) {
	exts := Extensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".tex")
	assert.NotContains(t, exts, ".png")
}

func TestFromReader_Text(t *testing.T) {
	doc, err := New().FromReader("proof.txt", strings.NewReader("Therefore, QED."))
	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.Equal(t, "Therefore, QED.", doc.Text)
	assert.Equal(t, 15, doc.Bytes)
}

func TestFromReader_InvalidUTF8Repaired(t *testing.T) {
	doc, err := New().FromReader("proof.txt", bytes.NewReader([]byte("qed\xff")))
	require.NoError(t, err)
	assert.Equal(t, "qed�", doc.Text)
}

func TestFromReader_HTML(t *testing.T) {
	page := `<!doctype html><html><head><title>Ignored</title>
<style>p { color: red }</style><script>var lemma = 1;</script></head>
<body><h1>Lemma</h1><p>Clearly<b>,</b> the result follows.</p><p>QED</p></body></html>`

	doc, err := New().FromReader("page.html", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, KindHTML, doc.Kind)
	assert.Equal(t, "Lemma Clearly , the result follows. QED", doc.Text)
	assert.NotContains(t, doc.Text, "Ignored")
	assert.NotContains(t, doc.Text, "var lemma")
}

func TestFromReader_PDF(t *testing.T) {
	data := extracttest.PDF(proofPage, proofPage)
	doc, err := New().FromReader("paper.pdf", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, KindPDF, doc.Kind)
	assert.Equal(t, 2, doc.Pages)
	assert.Contains(t, doc.Text, "by symmetry")
	assert.Equal(t, 2, strings.Count(doc.Text, "QED"))
}

func TestFromReader_ScannedPDF(t *testing.T) {
	// Nine words per page is below the threshold.
	data := extracttest.PDF("Figure 1", "a b c d e f g h i j k l m n o p q")
	_, err := New().FromReader("scan.pdf", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrScanned)

	doc, err := New(WithMinWordsPerPage(0)).FromReader("scan.pdf", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pages)
}

func TestFromReader_CorruptPDF(t *testing.T) {
	_, err := New().FromReader("broken.pdf", strings.NewReader("%PDF-1.4 not really"))
	assert.Error(t, err)
}

func TestFromReader_Image(t *testing.T) {
	_, err := New().FromReader("board.png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFromReader_TooLarge(t *testing.T) {
	e := New(WithMaxBytes(10))
	_, err := e.FromReader("proof.txt", strings.NewReader(strings.Repeat("x", 11)))
	assert.ErrorIs(t, err, ErrTooLarge)

	doc, err := e.FromReader("proof.txt", strings.NewReader(strings.Repeat("x", 10)))
	require.NoError(t, err)
	assert.Equal(t, 10, doc.Bytes)
}

func TestFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "proof.tex")
	require.NoError(t, os.WriteFile(p, []byte(`\begin{proof} Clearly. \end{proof}`), 0o644))

	doc, err := New().FromFile(p)
	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.Contains(t, doc.Text, "Clearly")

	_, err = New().FromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFromURL(t *testing.T) {
	pdfData := extracttest.PDF(proofPage)
	mux := http.NewServeMux()
	mux.HandleFunc("/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfData)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>Thus the lemma.</p>"))
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("??"))
	})
	mux.HandleFunc("/big.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 64))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	e := New(WithHTTPClient(srv.Client()))

	doc, err := e.FromURL(ctx, srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, doc.Kind)
	assert.Contains(t, doc.Text, "QED")

	doc, err = e.FromURL(ctx, srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, KindHTML, doc.Kind)
	assert.Equal(t, "Thus the lemma.", doc.Text)

	_, err = e.FromURL(ctx, srv.URL+"/blob")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = e.FromURL(ctx, srv.URL+"/missing.pdf")
	assert.ErrorIs(t, err, ErrFetch)

	_, err = e.FromURL(ctx, srv.URL+"/scan.png")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(WithHTTPClient(srv.Client()), WithMaxBytes(16)).FromURL(ctx, srv.URL+"/big.txt")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFromURL_Invalid(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://example.org/a.pdf", "file:///etc/passwd.txt"} {
		_, err := New().FromURL(context.Background(), u)
		assert.ErrorIs(t, err, ErrFetch, u)
	}
}

func TestFromURL_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("qed"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithHTTPClient(srv.Client())).FromURL(ctx, srv.URL+"/a.txt")
	assert.ErrorIs(t, err, ErrFetch)
}
