package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	docx "github.com/fumiama/go-docx"
)

func writeTestDOCX(t *testing.T, build func(d *docx.Docx)) string {
	t.Helper()
	d := docx.New().WithDefaultTheme()
	build(d)

	path := filepath.Join(t.TempDir(), "test.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		t.Fatalf("write docx: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDOCX_PagesSplitAtPageBreaks(t *testing.T) {
	path := writeTestDOCX(t, func(d *docx.Docx) {
		d.AddParagraph().AddText("Systems Paper intro")
		d.AddParagraph().AddText("second paragraph")
		d.AddParagraph().AddPageBreaks()
		d.AddParagraph().AddText("Results\tsection")
	})

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer doc.Close()

	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}

	p0, _ := doc.Page(0)
	text, err := p0.ExtractPrimaryText()
	if err != nil {
		t.Fatalf("primary text: %v", err)
	}
	want := "Systems Paper intro\n\nsecond paragraph"
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}

	p1, _ := doc.Page(1)
	text, _ = p1.ExtractPrimaryText()
	if text != "Results\tsection" {
		t.Errorf("expected %q, got %q", "Results\tsection", text)
	}
	if raw := p1.RawContentScan(); !strings.Contains(raw, "Results") {
		t.Errorf("expected raw scan to contain %q, got %q", "Results", raw)
	}
}

func TestDOCX_Empty(t *testing.T) {
	path := writeTestDOCX(t, func(d *docx.Docx) {})

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("expected a single empty page, got %d", doc.PageCount())
	}
	p, _ := doc.Page(0)
	if text, _ := p.ExtractPrimaryText(); text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestSplitAtPageBreaks_MidRun(t *testing.T) {
	p := &docx.Paragraph{Children: []interface{}{
		&docx.Run{Children: []interface{}{
			&docx.Text{Text: "before"},
			&docx.BarterRabbet{Type: "page"},
			&docx.Text{Text: "after"},
		}},
	}}

	frags := splitAtPageBreaks(p)
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if got := paragraphText(frags[0]); got != "before" {
		t.Errorf("fragment 0: expected %q, got %q", "before", got)
	}
	if got := paragraphText(frags[1]); got != "after" {
		t.Errorf("fragment 1: expected %q, got %q", "after", got)
	}
	if got := paragraphText(p); got != "before\nafter" {
		t.Errorf("original paragraph modified: %q", got)
	}
}
