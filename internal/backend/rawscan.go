package backend

import (
	"strings"
	"unicode"

	pdflib "github.com/ledongthuc/pdf"
)

// kernSpaceThreshold is the TJ displacement (thousandths of an em) past
// which a gap between two strings is read as a word break.
const kernSpaceThreshold = -200

// scanContentStream walks a page's content stream and collects the string
// operands of the text-showing operators without consulting font encodings.
// Whatever was collected before a malformed operator is kept.
func scanContentStream(contents pdflib.Value) (text string) {
	var acc rawText
	defer func() {
		if r := recover(); r != nil {
			text = acc.String()
		}
	}()

	if contents.IsNull() {
		return ""
	}

	pdflib.Interpret(contents, func(stk *pdflib.Stack, op string) {
		n := stk.Len()
		args := make([]pdflib.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "'", "\"":
			acc.newline()
			fallthrough
		case "Tj":
			if n > 0 {
				acc.show(args[n-1].RawString())
			}
		case "TJ":
			if n == 0 {
				return
			}
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				x := arr.Index(i)
				switch x.Kind() {
				case pdflib.String:
					acc.show(x.RawString())
				case pdflib.Integer, pdflib.Real:
					acc.kern(x.Float64())
				}
			}
		case "Td", "TD", "T*", "Tm", "ET":
			acc.newline()
		}
	})
	return acc.String()
}

// rawText accumulates undecoded string operands into readable text.
type rawText struct {
	b strings.Builder
}

func (r *rawText) show(raw string) {
	r.b.WriteString(decodeRawBytes(raw))
}

func (r *rawText) kern(displacement float64) {
	if displacement < kernSpaceThreshold {
		r.space()
	}
}

func (r *rawText) space() {
	s := r.b.String()
	if s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") {
		return
	}
	r.b.WriteByte(' ')
}

func (r *rawText) newline() {
	s := r.b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	r.b.WriteByte('\n')
}

func (r *rawText) String() string {
	return strings.TrimSpace(r.b.String())
}

// decodeRawBytes maps string operand bytes to runes. Two-byte strings whose
// high bytes are all zero are treated as UTF-16BE (common for CID fonts that
// use Unicode values as glyph ids); everything else is read as Latin-1.
// Control characters are dropped.
func decodeRawBytes(raw string) string {
	if isZeroHighUTF16(raw) {
		var lo strings.Builder
		for i := 1; i < len(raw); i += 2 {
			lo.WriteByte(raw[i])
		}
		raw = lo.String()
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		r := rune(raw[i])
		switch {
		case r == '\t':
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isZeroHighUTF16(raw string) bool {
	if len(raw) < 2 || len(raw)%2 != 0 {
		return false
	}
	for i := 0; i < len(raw); i += 2 {
		if raw[i] != 0 || raw[i+1] == 0 {
			return false
		}
	}
	return true
}
