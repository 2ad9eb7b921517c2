package backend

import (
	"fmt"
	"os"
	"strings"

	docx "github.com/fumiama/go-docx"
)

// docxDocument holds a Word document split at explicit page breaks. The
// format has no fixed layout, so these are the only page boundaries the file
// itself records.
type docxDocument struct {
	path  string
	pages []*docxPage
}

type docxPage struct {
	index  int
	blocks []interface{} // *docx.Paragraph fragments and *docx.Table
}

func openDOCX(path string) (doc *docxDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parse docx: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	parsed, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	d := &docxDocument{path: path}
	cur := d.newPage()
	for _, item := range parsed.Document.Body.Items {
		switch o := item.(type) {
		case *docx.Paragraph:
			for i, frag := range splitAtPageBreaks(o) {
				if i > 0 {
					cur = d.newPage()
				}
				if len(frag.Children) > 0 {
					cur.blocks = append(cur.blocks, frag)
				}
			}
		case *docx.Table:
			cur.blocks = append(cur.blocks, o)
		}
	}
	return d, nil
}

func (d *docxDocument) newPage() *docxPage {
	p := &docxPage{index: len(d.pages)}
	d.pages = append(d.pages, p)
	return p
}

func (d *docxDocument) Path() string   { return d.path }
func (d *docxDocument) PageCount() int { return len(d.pages) }
func (d *docxDocument) Close() error   { return nil }

func (d *docxDocument) Page(index int) (Page, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return nil, err
	}
	return d.pages[index], nil
}

func (p *docxPage) Index() int { return p.index }

// ExtractPrimaryText walks runs directly: paragraphs separated by blank lines,
// table cells by tabs and rows by newlines.
func (p *docxPage) ExtractPrimaryText() (string, error) {
	parts := make([]string, 0, len(p.blocks))
	for _, b := range p.blocks {
		var s string
		switch o := b.(type) {
		case *docx.Paragraph:
			s = paragraphText(o)
		case *docx.Table:
			s = tableText(o)
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// RawContentScan uses the library's own string rendering of each block.
func (p *docxPage) RawContentScan() string {
	parts := make([]string, 0, len(p.blocks))
	for _, b := range p.blocks {
		if s := strings.TrimSpace(stringBlock(b)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// stringBlock renders one block via fmt.Stringer. Hyperlink resolution inside
// the library can panic on documents without relationship data.
func stringBlock(b interface{}) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()
	if st, ok := b.(fmt.Stringer); ok {
		return st.String()
	}
	return ""
}

// splitAtPageBreaks returns the paragraph as one fragment per page it spans.
// Fragments are shallow copies sharing the original's properties.
func splitAtPageBreaks(p *docx.Paragraph) []*docx.Paragraph {
	var frags []*docx.Paragraph
	cur := *p
	cur.Children = nil

	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok || !hasPageBreak(run) {
			cur.Children = append(cur.Children, child)
			continue
		}
		piece := *run
		piece.Children = nil
		for _, rc := range run.Children {
			if br, ok := rc.(*docx.BarterRabbet); ok && br.Type == "page" {
				if len(piece.Children) > 0 {
					r := piece
					cur.Children = append(cur.Children, &r)
				}
				frag := cur
				frags = append(frags, &frag)
				cur.Children = nil
				piece.Children = nil
				continue
			}
			piece.Children = append(piece.Children, rc)
		}
		if len(piece.Children) > 0 {
			r := piece
			cur.Children = append(cur.Children, &r)
		}
	}
	frag := cur
	return append(frags, &frag)
}

func hasPageBreak(r *docx.Run) bool {
	for _, c := range r.Children {
		if br, ok := c.(*docx.BarterRabbet); ok && br.Type == "page" {
			return true
		}
	}
	return false
}

func paragraphText(p *docx.Paragraph) string {
	var b strings.Builder
	for _, c := range p.Children {
		switch o := c.(type) {
		case *docx.Run:
			writeRunText(&b, o)
		case *docx.Hyperlink:
			writeRunText(&b, &o.Run)
		}
	}
	return b.String()
}

func writeRunText(b *strings.Builder, r *docx.Run) {
	for _, c := range r.Children {
		switch o := c.(type) {
		case *docx.Text:
			b.WriteString(o.Text)
		case *docx.Tab:
			b.WriteByte('\t')
		case *docx.BarterRabbet:
			b.WriteByte('\n')
		}
	}
}

func tableText(t *docx.Table) string {
	rows := make([]string, 0, len(t.TableRows))
	for _, row := range t.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var paras []string
			for _, p := range cell.Paragraphs {
				paras = append(paras, paragraphText(p))
			}
			cells = append(cells, strings.Join(paras, " "))
		}
		rows = append(rows, strings.Join(cells, "\t"))
	}
	return strings.Join(rows, "\n")
}
