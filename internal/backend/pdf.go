package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"
)

const pdftotextTimeout = 30 * time.Second

type pdfDocument struct {
	path      string
	f         *os.File
	reader    *pdflib.Reader
	pageCount int
	pdftotext bool
}

func openPDF(path string, opts Options) (doc *pdfDocument, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	n := reader.NumPage()
	if n <= 0 {
		f.Close()
		return nil, ErrNoPages
	}
	return &pdfDocument{
		path:      path,
		f:         f,
		reader:    reader,
		pageCount: n,
		pdftotext: opts.PDFFallbackPdftotext,
	}, nil
}

func (d *pdfDocument) Path() string   { return d.path }
func (d *pdfDocument) PageCount() int { return d.pageCount }
func (d *pdfDocument) Close() error   { return d.f.Close() }

func (d *pdfDocument) Page(index int) (Page, error) {
	if err := checkIndex(index, d.pageCount); err != nil {
		return nil, err
	}
	return &pdfPage{doc: d, index: index}, nil
}

type pdfPage struct {
	doc   *pdfDocument
	index int
}

func (p *pdfPage) Index() int { return p.index }

func (p *pdfPage) libPage() (pg pdflib.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load page %d: %v", p.index, r)
		}
	}()
	pg = p.doc.reader.Page(p.index + 1)
	if pg.V.IsNull() {
		return pg, fmt.Errorf("load page %d: missing page object", p.index)
	}
	return pg, nil
}

func (p *pdfPage) ExtractPrimaryText() (string, error) {
	pg, err := p.libPage()
	if err != nil {
		return "", err
	}
	text, err := pg.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("text layer page %d: %w", p.index, err)
	}
	return text, nil
}

func (p *pdfPage) RawContentScan() string {
	var text string
	if pg, err := p.libPage(); err == nil {
		text = scanContentStream(pg.V.Key("Contents"))
	}
	if strings.TrimSpace(text) == "" && p.doc.pdftotext {
		if out, err := extractPdftotext(p.doc.path, p.index+1); err == nil {
			text = out
		}
	}
	return text
}

// extractPdftotext renders one 1-indexed page through poppler's pdftotext.
func extractPdftotext(path string, pageNum int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()

	n := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, "pdftotext", "-f", n, "-l", n, "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("pdftotext not installed: %w", err)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return strings.TrimRight(string(out), "\f\n"), nil
}
