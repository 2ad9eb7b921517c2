package extract

import (
	"strings"
	"testing"
)

func TestLooksGarbled_ReadableTextPasses(t *testing.T) {
	text := "Systems Paper\n\nWe describe a log-structured store (v2.1) in 12 pages."
	if LooksGarbled(text, DefaultThresholds()) {
		t.Error("expected readable text to pass")
	}
}

func TestLooksGarbled_EmptyIsNotGarbled(t *testing.T) {
	if LooksGarbled("", DefaultThresholds()) {
		t.Error("expected empty text not to be garbled")
	}
}

func TestLooksGarbled_ReplacementCharacters(t *testing.T) {
	text := "ab" + strings.Repeat("\ufffd", 8)
	if !LooksGarbled(text, DefaultThresholds()) {
		t.Error("expected mostly U+FFFD text to be garbled")
	}
}

func TestLooksGarbled_ControlCharacters(t *testing.T) {
	text := "\x01\x02\x03\x04 hi"
	if !LooksGarbled(text, DefaultThresholds()) {
		t.Error("expected control-heavy text to be garbled")
	}
}

func TestLooksGarbled_PrivateUseGlyphIDs(t *testing.T) {
	text := strings.Repeat("\ue001\ue002 ", 10)
	if !LooksGarbled(text, DefaultThresholds()) {
		t.Error("expected private-use glyph ids to be garbled")
	}
}

func TestLooksGarbled_NoLettersOnFullPage(t *testing.T) {
	text := strings.Repeat("#$%& ", 10)
	if !LooksGarbled(text, DefaultThresholds()) {
		t.Error("expected letterless page to be garbled")
	}
}

func TestLooksGarbled_FewGlyphsSkipsLetterCheck(t *testing.T) {
	// A page number alone is fine.
	if LooksGarbled("- 12 -", DefaultThresholds()) {
		t.Error("expected short letterless text to pass")
	}
}

func TestLooksGarbled_LetterCheckDisabled(t *testing.T) {
	th := DefaultThresholds()
	th.AlphaCheckMinGlyphs = 0
	if LooksGarbled(strings.Repeat("1234 ", 20), th) {
		t.Error("expected numbers to pass with the letter check disabled")
	}
}

func TestLooksGarbled_RatioThreshold(t *testing.T) {
	// 9 printable of 10.
	text := "abcdefghi\x00"
	th := Thresholds{MinPrintableRatio: 0.9}
	if LooksGarbled(text, th) {
		t.Error("expected ratio 0.9 to pass a 0.9 threshold")
	}
	th.MinPrintableRatio = 0.95
	if !LooksGarbled(text, th) {
		t.Error("expected ratio 0.9 to fail a 0.95 threshold")
	}
}
