package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/robby/internal/doctree"
)

// DefaultLinesPerPage paginates plain text that carries no form feeds.
const DefaultLinesPerPage = 60

// TextParser handles plain text files. A form feed starts a new page; text
// without form feeds is split every LinesPerPage lines.
type TextParser struct {
	LinesPerPage int
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	perPage := p.LinesPerPage
	if perPage <= 0 {
		perPage = DefaultLinesPerPage
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pages []string
	var current strings.Builder
	lines := 0
	sawFormFeed := false

	flush := func() {
		pages = append(pages, current.String())
		current.Reset()
		lines = 0
	}

	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\f")
		for i, part := range parts {
			if i > 0 {
				sawFormFeed = true
				flush()
			}
			if part != "" || len(parts) == 1 {
				if lines > 0 {
					current.WriteString("\n")
				}
				current.WriteString(part)
				lines++
			}
		}
		if !sawFormFeed && lines >= perPage {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current.Len() > 0 || lines > 0 {
		flush()
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".txt"),
	}
	for _, page := range pages {
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: strings.TrimRight(page, "\n"),
		})
	}
	return tree, nil
}
