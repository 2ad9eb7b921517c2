package extract

import "unicode"

// Thresholds tune LooksGarbled.
type Thresholds struct {
	// MinPrintableRatio is the lowest acceptable share of printable runes
	// (whitespace included) in a page's text.
	MinPrintableRatio float64

	// AlphaCheckMinGlyphs is how many non-space glyphs a page needs before a
	// total absence of letters counts as garbled. Zero disables the check.
	AlphaCheckMinGlyphs int
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPrintableRatio:   0.85,
		AlphaCheckMinGlyphs: 16,
	}
}

// LooksGarbled reports whether text is more likely an undecoded glyph dump
// than readable content. U+FFFD, control characters, private-use and
// unassigned code points are unprintable. Empty text is not garbled.
func LooksGarbled(text string, th Thresholds) bool {
	var total, printable, glyphs, letters int
	for _, r := range text {
		total++
		switch {
		case unicode.IsSpace(r):
			printable++
		case r == unicode.ReplacementChar, !unicode.IsPrint(r):
		default:
			printable++
			glyphs++
			if unicode.IsLetter(r) {
				letters++
			}
		}
	}
	if total == 0 {
		return false
	}
	if float64(printable)/float64(total) < th.MinPrintableRatio {
		return true
	}
	return th.AlphaCheckMinGlyphs > 0 && glyphs >= th.AlphaCheckMinGlyphs && letters == 0
}
