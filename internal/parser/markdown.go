package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/robby/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	title := strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown")
	b := newTreeBuilder(title)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.heading(h.Level, blockText(h, src))
			continue
		}
		b.paragraph(blockText(n, src))
	}

	return b.tree(title), nil
}

// blockText gets the text content of a goldmark block node.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeBlock(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

// writeBlock uses inline children when a block has them (paragraphs,
// headings) and raw lines otherwise (code blocks). Container blocks such as
// lists and quotes recurse, one line per child block.
func writeBlock(buf *bytes.Buffer, n ast.Node, src []byte) {
	first := n.FirstChild()
	switch {
	case first == nil:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	case first.Type() == ast.TypeInline:
		for c := first; c != nil; c = c.NextSibling() {
			writeInline(buf, c, src)
		}
	default:
		for c := first; c != nil; c = c.NextSibling() {
			if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			writeBlock(buf, c, src)
		}
	}
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch t := n.(type) {
	case *ast.Text:
		buf.Write(t.Value(src))
		if t.HardLineBreak() || t.SoftLineBreak() {
			buf.WriteByte('\n')
		}
	case *ast.String:
		buf.Write(t.Value)
	case *ast.AutoLink:
		buf.Write(t.Label(src))
	case *ast.RawHTML:
		// markup only
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			writeInline(buf, c, src)
		}
	}
}
