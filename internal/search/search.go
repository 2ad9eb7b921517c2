// Package search finds query occurrences in extracted page text. Matches are
// produced lazily, one page at a time, in (page, offset) order.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrNoMatches is returned by navigation over an empty result set.
var ErrNoMatches = errors.New("no matches")

// Match locates one occurrence. Offset and Length count runes in the page's
// extracted text.
type Match struct {
	Page   int `json:"page"`
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Less orders matches by page, then offset.
func (m Match) Less(o Match) bool {
	if m.Page != o.Page {
		return m.Page < o.Page
	}
	return m.Offset < o.Offset
}

type Options struct {
	CaseSensitive bool `json:"case_sensitive"`
}

// TextSource supplies page text. An error marks the page as having no
// searchable text; the search moves on to the next page.
type TextSource interface {
	PageCount() int
	Text(page int) (string, error)
}

// Iterator pulls matches from a TextSource. A page is extracted only when the
// matches of all earlier pages have been consumed.
type Iterator struct {
	ctx       context.Context
	src       TextSource
	needle    string
	runeLen   int
	fold      bool
	pageCount int

	page    int
	pending []Match
	err     error
	done    bool
}

// Search starts a lazy search. An empty query yields no matches.
func Search(ctx context.Context, src TextSource, query string, opts Options) *Iterator {
	it := &Iterator{
		ctx:       ctx,
		src:       src,
		fold:      !opts.CaseSensitive,
		pageCount: src.PageCount(),
	}
	if query == "" {
		it.done = true
		return it
	}
	it.needle = norm.NFC.String(query)
	if it.fold {
		it.needle = foldCase(it.needle)
	}
	it.runeLen = utf8.RuneCountInString(it.needle)
	return it
}

// Next returns the next match. ok is false once the search is exhausted or
// cancelled; Err distinguishes the two.
func (it *Iterator) Next() (m Match, ok bool) {
	for len(it.pending) == 0 {
		if it.done {
			return Match{}, false
		}
		if err := it.ctx.Err(); err != nil {
			it.stop(err)
			return Match{}, false
		}
		if it.page >= it.pageCount {
			it.done = true
			return Match{}, false
		}

		text, err := it.src.Text(it.page)
		if cerr := it.ctx.Err(); cerr != nil {
			// Cancelled while extracting; the page's matches are stale.
			it.stop(cerr)
			return Match{}, false
		}
		if err == nil {
			it.pending = findAll(it.page, text, it.needle, it.runeLen, it.fold)
		}
		it.page++
	}
	m = it.pending[0]
	it.pending = it.pending[1:]
	return m, true
}

// Err returns the cancellation error that stopped the iterator, if any.
func (it *Iterator) Err() error { return it.err }

// PagesScanned is the number of pages extracted so far.
func (it *Iterator) PagesScanned() int { return it.page }

func (it *Iterator) stop(err error) {
	it.err = err
	it.done = true
	it.pending = nil
}

// All drains a search.
func All(ctx context.Context, src TextSource, query string, opts Options) ([]Match, error) {
	it := Search(ctx, src, query, opts)
	var out []Match
	for {
		m, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, m)
	}
	return out, it.Err()
}

// findAll scans text left to right for non-overlapping occurrences of needle.
// needle must already be NFC and, when fold is set, folded. Offsets and
// lengths are rune counts in text as given, not in its normalized form.
func findAll(page int, text, needle string, runeLen int, fold bool) []Match {
	hay := newHaystack(text, fold)

	var out []Match
	byteOff, runeOff := 0, 0
	for byteOff < len(hay.s) {
		i := strings.Index(hay.s[byteOff:], needle)
		if i < 0 {
			break
		}
		runeOff += utf8.RuneCountInString(hay.s[byteOff : byteOff+i])
		start, end := hay.orig(runeOff), hay.orig(runeOff+runeLen)
		out = append(out, Match{Page: page, Offset: start, Length: end - start})
		byteOff += i + len(needle)
		runeOff += runeLen
	}
	return out
}

// haystack is the searchable form of a page: NFC and optionally case-folded.
// pos maps each of its runes, plus the end, to a rune offset in the original
// text; it is nil when the original was already NFC and runes map 1:1.
type haystack struct {
	s   string
	pos []int
}

func newHaystack(text string, fold bool) haystack {
	if norm.NFC.IsNormalString(text) {
		if fold {
			text = foldCase(text)
		}
		return haystack{s: text}
	}

	var b strings.Builder
	pos := make([]int, 0, len(text)+1)
	orig := 0
	for i := 0; i < len(text); {
		n := norm.NFC.NextBoundaryInString(text[i:], true)
		if n <= 0 {
			n = len(text) - i
		}
		seg := text[i : i+n]
		segRunes := utf8.RuneCountInString(seg)
		j := 0
		for _, r := range norm.NFC.String(seg) {
			if fold {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
			// A rune inside a recomposed segment maps into that segment.
			pos = append(pos, orig+min(j, segRunes-1))
			j++
		}
		orig += segRunes
		i += n
	}
	pos = append(pos, orig)
	return haystack{s: b.String(), pos: pos}
}

func (h haystack) orig(k int) int {
	if h.pos == nil {
		return k
	}
	return h.pos[k]
}

// foldCase lowercases rune by rune so the folded string has exactly as many
// runes as the input and offsets carry over unchanged.
func foldCase(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// NextMatch returns the first match after current, wrapping to the first
// match. current need not be an element of matches.
func NextMatch(matches []Match, current Match) (Match, error) {
	if len(matches) == 0 {
		return Match{}, ErrNoMatches
	}
	i := sort.Search(len(matches), func(i int) bool { return current.Less(matches[i]) })
	if i == len(matches) {
		return matches[0], nil
	}
	return matches[i], nil
}

// PrevMatch returns the last match before current, wrapping to the last match.
func PrevMatch(matches []Match, current Match) (Match, error) {
	if len(matches) == 0 {
		return Match{}, ErrNoMatches
	}
	i := sort.Search(len(matches), func(i int) bool { return !matches[i].Less(current) })
	if i == 0 {
		return matches[len(matches)-1], nil
	}
	return matches[i-1], nil
}
