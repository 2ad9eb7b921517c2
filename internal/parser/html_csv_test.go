package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_SectionsFromHeadings(t *testing.T) {
	input := `<html><head><title>Reader Guide</title><style>p{}</style></head>
<body>
<nav>skip me</nav>
<p>Lead paragraph.</p>
<h1>Opening</h1><p>First <b>bold</b> words.</p>
<h2>Detail</h2><ul><li>one</li><li>two</li></ul>
<h1>Closing</h1><p>Last words.</p>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Reader Guide" {
		t.Errorf("expected title %q, got %q", "Reader Guide", tree.Title)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected lead + 2 h1 sections, got %d", len(tree.Children))
	}
	if tree.Children[0].Text != "Lead paragraph." {
		t.Errorf("unexpected lead text %q", tree.Children[0].Text)
	}

	opening := tree.Children[1]
	if opening.Title != "Opening" || opening.Text != "First bold words." {
		t.Errorf("unexpected opening section %+v", opening)
	}
	if len(opening.Children) != 1 || opening.Children[0].Text != "one\n\ntwo" {
		t.Errorf("expected nested detail section with list items, got %+v", opening.Children)
	}

	for _, sec := range tree.Sections() {
		if strings.Contains(sec, "skip me") || strings.Contains(sec, "var x") {
			t.Errorf("non-content element leaked into %q", sec)
		}
	}
}

func TestCSVParser_PagesRepeatHeader(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,qty\n")
	for i := 0; i < 5; i++ {
		b.WriteString("widget,1\n")
	}
	p := &CSVParser{RowsPerPage: 2}
	tree, err := p.Parse(strings.NewReader(b.String()), "stock.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(tree.Children))
	}
	for i, c := range tree.Children {
		if !strings.HasPrefix(c.Text, "name, qty\n") {
			t.Errorf("page %d missing header: %q", i, c.Text)
		}
	}
	if tree.Children[2].Title != "Rows 6-6" {
		t.Errorf("expected last page title %q, got %q", "Rows 6-6", tree.Children[2].Title)
	}
	if !strings.Contains(tree.Children[0].Text, "name: widget, qty: 1") {
		t.Errorf("expected labelled cells, got %q", tree.Children[0].Text)
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.MD", "c.csv", "d.htm"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", name, err)
		}
	}
	if _, err := ForFile("e.pdf"); err == nil {
		t.Error("expected pdf to be rejected by the structured parsers")
	}
}
