package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/robby/internal/doctree"
)

// DefaultCSVRowsPerPage is how many data rows share one page.
const DefaultCSVRowsPerPage = 20

// CSVParser handles CSV files. Every page repeats the header row so that a
// page on its own still reads as a table.
type CSVParser struct {
	RowsPerPage int
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".csv"),
	}
	if len(records) == 0 {
		return tree, nil
	}

	perPage := p.RowsPerPage
	if perPage <= 0 {
		perPage = DefaultCSVRowsPerPage
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: strings.Join(headers, ", ")})
		return tree, nil
	}

	for i := 0; i < len(dataRows); i += perPage {
		end := min(i+perPage, len(dataRows))

		var text strings.Builder
		text.WriteString(strings.Join(headers, ", "))
		for _, row := range dataRows[i:end] {
			text.WriteString("\n")
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + ": ")
				}
				text.WriteString(cell)
			}
		}

		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Rows %d-%d", i+2, end+1), // 1-indexed, skip header
			Text:  text.String(),
		})
	}

	return tree, nil
}
