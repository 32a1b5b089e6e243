// Package extract turns submitted documents into plain text for scoring.
//
// Supported inputs are plain text (.txt, .md, .tex), HTML and PDF text
// layers. Images are recognised but rejected with ErrUnsupported: reading
// them needs an OCR service.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnsupported is returned for file types that cannot be read.
	ErrUnsupported = errors.New("not an accepted file format")
	// ErrScanned is returned for PDFs whose text layer is too thin to be real text.
	ErrScanned = errors.New("this looks like a scanned PDF, please submit a text PDF")
	// ErrTooLarge is returned when an input exceeds the configured byte limit.
	ErrTooLarge = errors.New("upload too large")
	// ErrFetch is returned when a URL cannot be downloaded.
	ErrFetch = errors.New("invalid URL")
)

// Kind is a document format.
type Kind string

const (
	KindText  Kind = "text"
	KindHTML  Kind = "html"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// DefaultMaxBytes caps an input at 5 MiB.
const DefaultMaxBytes int64 = 5 << 20

// DefaultMinWordsPerPage is the scanned-PDF threshold: fewer extracted words
// per page than this and the PDF is treated as an image scan.
const DefaultMinWordsPerPage = 20

var kindByExt = map[string]Kind{
	".txt":  KindText,
	".text": KindText,
	".md":   KindText,
	".tex":  KindText,
	".html": KindHTML,
	".htm":  KindHTML,
	".pdf":  KindPDF,
	".jpeg": KindImage,
	".jpg":  KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".tiff": KindImage,
}

var kindByMIME = map[string]Kind{
	"text/plain":      KindText,
	"text/markdown":   KindText,
	"text/x-tex":      KindText,
	"text/html":       KindHTML,
	"application/pdf": KindPDF,
}

// Document is extracted text plus what is known about its source.
type Document struct {
	Name  string
	Kind  Kind
	Text  string
	Pages int // PDF only
	Bytes int
}

// Extractor reads documents. The zero value is not usable; call New.
type Extractor struct {
	maxBytes        int64
	minWordsPerPage int
	client          *http.Client
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the input size limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) { e.maxBytes = n }
}

// WithMinWordsPerPage sets the scanned-PDF threshold. Zero disables the check.
func WithMinWordsPerPage(n int) Option {
	return func(e *Extractor) { e.minWordsPerPage = n }
}

// WithHTTPClient sets the client used by FromURL.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// New returns an Extractor with defaults applied.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxBytes:        DefaultMaxBytes,
		minWordsPerPage: DefaultMinWordsPerPage,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: 15 * time.Second}
	}
	return e
}

// MaxBytes returns the input size limit.
func (e *Extractor) MaxBytes() int64 {
	return e.maxBytes
}

// KindOf maps a file name to its Kind by extension.
func KindOf(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	k, ok := kindByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return k, nil
}

// Extensions returns the extensions of the readable (non-image) kinds.
func Extensions() []string {
	var out []string
	for ext, k := range kindByExt {
		if k != KindImage {
			out = append(out, ext)
		}
	}
	return out
}

// FromFile extracts text from a file on disk.
func (e *Extractor) FromFile(p string) (*Document, error) {
	if _, err := KindOf(p); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return e.FromReader(p, f)
}

// FromReader extracts text from r, choosing the format by name's extension.
func (e *Extractor) FromReader(name string, r io.Reader) (*Document, error) {
	kind, err := KindOf(name)
	if err != nil {
		return nil, err
	}
	data, err := e.readAll(r)
	if err != nil {
		return nil, err
	}
	return e.decode(name, kind, data)
}

// FromURL downloads rawURL and extracts its text. The format comes from the
// URL path's extension, falling back to the response Content-Type.
func (e *Extractor) FromURL(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrFetch, rawURL)
	}
	kind, kindErr := KindOf(path.Base(u.Path))
	if kind == KindImage {
		return nil, fmt.Errorf("%w: images need OCR", ErrUnsupported)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, rawURL, resp.Status)
	}
	if e.maxBytes > 0 && resp.ContentLength > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	if kindErr != nil {
		mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		k, ok := kindByMIME[mt]
		if !ok {
			return nil, kindErr
		}
		kind = k
	}

	data, err := e.readAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return e.decode(rawURL, kind, data)
}

// readAll reads r up to the byte limit.
func (e *Extractor) readAll(r io.Reader) ([]byte, error) {
	if e.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, e.maxBytes)
	}
	return data, nil
}

func (e *Extractor) decode(name string, kind Kind, data []byte) (*Document, error) {
	doc := &Document{Name: name, Kind: kind, Bytes: len(data)}
	switch kind {
	case KindText:
		doc.Text = toValidUTF8(data)
	case KindHTML:
		text, err := htmlText(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		doc.Text = text
	case KindPDF:
		text, pages, err := pdfText(data)
		if err != nil {
			return nil, err
		}
		doc.Text, doc.Pages = text, pages
		if e.minWordsPerPage > 0 && looksScanned(text, pages, e.minWordsPerPage) {
			return nil, ErrScanned
		}
	case KindImage:
		return nil, fmt.Errorf("%w: images need OCR", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	return doc, nil
}

// looksScanned applies the words-per-page heuristic.
func looksScanned(text string, pages, minWordsPerPage int) bool {
	if pages <= 0 {
		return true
	}
	return len(strings.Fields(text))/pages < minWordsPerPage
}

func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
