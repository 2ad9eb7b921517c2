// Package backend adapts document parsing libraries to a single page-based
// model: a Document is an ordered, fixed set of Pages, and every Page offers a
// structured text layer plus a lower-fidelity raw scan of its content.
package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/robby/internal/parser"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension no backend handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoPages is returned for documents that parse but contain no pages.
	ErrNoPages = errors.New("document has no pages")

	// ErrPageOutOfRange is returned by Document.Page for a bad index.
	ErrPageOutOfRange = errors.New("page index out of range")
)

// Document is an opened document. Its page count never changes.
type Document interface {
	Path() string
	PageCount() int
	Page(index int) (Page, error)
	Close() error
}

// Page is one 0-indexed page of a Document.
type Page interface {
	Index() int
	// ExtractPrimaryText reads the document's structured text layer.
	ExtractPrimaryText() (string, error)
	// RawContentScan is the fallback path. It never fails; it returns an
	// empty string when nothing could be recovered.
	RawContentScan() string
}

// Opener opens documents by path.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenError reports a document that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Options tune the backends.
type Options struct {
	// PDFFallbackPdftotext lets the PDF raw scan shell out to pdftotext when
	// the content stream yields nothing.
	PDFFallbackPdftotext bool
}

// Registry dispatches on file extension.
type Registry struct {
	opts Options
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts}
}

// Open opens path with the default options.
func Open(path string) (Document, error) {
	return NewRegistry(Options{}).Open(path)
}

// Open resolves path to an absolute path and opens it with the backend for
// its extension. Every failure is an *OpenError.
func (r *Registry) Open(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &OpenError{Path: abs, Err: err}
	}
	if info.IsDir() {
		return nil, &OpenError{Path: abs, Err: errors.New("is a directory")}
	}

	var doc Document
	ext := strings.ToLower(filepath.Ext(abs))
	switch {
	case ext == ".pdf":
		doc, err = openPDF(abs, r.opts)
	case ext == ".docx":
		doc, err = openDOCX(abs)
	case parser.IsSupportedExtension(abs):
		doc, err = openTree(abs)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &OpenError{Path: abs, Err: err}
	}
	return doc, nil
}

// IsSupported reports whether path has an extension some backend handles.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || ext == ".docx" || parser.IsSupportedExtension(path)
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, count)
	}
	return nil
}
