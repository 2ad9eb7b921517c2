package backend

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/robby/internal/parser"
)

// treeDocument pages a structured text format: each top-level section of the
// parsed tree is one page.
type treeDocument struct {
	path  string
	pages []string
}

func openTree(path string) (*treeDocument, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	pages := tree.Sections()
	if len(pages) == 0 {
		// An empty file is still viewable.
		pages = []string{""}
	}
	return &treeDocument{path: path, pages: pages}, nil
}

func (d *treeDocument) Path() string   { return d.path }
func (d *treeDocument) PageCount() int { return len(d.pages) }
func (d *treeDocument) Close() error   { return nil }

func (d *treeDocument) Page(index int) (Page, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return nil, err
	}
	return treePage{index: index, text: d.pages[index]}, nil
}

type treePage struct {
	index int
	text  string
}

func (p treePage) Index() int                          { return p.index }
func (p treePage) ExtractPrimaryText() (string, error) { return p.text, nil }

func (p treePage) RawContentScan() string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, p.text)
}
