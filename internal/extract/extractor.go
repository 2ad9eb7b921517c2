// Package extract turns backend pages into searchable text. Each page goes
// through the document's structured text layer first and falls back to a raw
// content scan when that fails, comes back empty, or looks garbled.
package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/robby/internal/backend"
)

// Source records which path produced a page's text.
type Source int

const (
	SourceNone Source = iota
	SourcePrimary
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Failure means neither extraction path produced text for a page. The page
// is searchable as empty; other pages are unaffected.
type Failure struct {
	PageIndex int
	Reason    string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extract page %d: %s", f.PageIndex, f.Reason)
}

type entry struct {
	text   string
	source Source
	err    error
}

// Extractor owns the text cache of one open document. All extraction for the
// document is serialized through it.
type Extractor struct {
	doc        backend.Document
	thresholds Thresholds
	stats      *Stats
	log        *slog.Logger

	mu    sync.Mutex
	cache map[int]entry
}

// New creates an Extractor for doc. stats may be nil.
func New(doc backend.Document, th Thresholds, stats *Stats, log *slog.Logger) *Extractor {
	return &Extractor{
		doc:        doc,
		thresholds: th,
		stats:      stats,
		log:        log.With("path", doc.Path()),
		cache:      make(map[int]entry),
	}
}

func (e *Extractor) Document() backend.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

func (e *Extractor) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.PageCount()
}

// Replace swaps in a reloaded copy of the document and clears the cache. The
// previous document is returned for the caller to close.
func (e *Extractor) Replace(doc backend.Document) backend.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.doc
	e.doc = doc
	e.cache = make(map[int]entry)
	return old
}

// Text returns the effective text of page index. A *Failure is returned (and
// cached) when no text could be recovered; the text is then empty.
func (e *Extractor) Text(index int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ent, ok := e.cache[index]; ok {
		return ent.text, ent.err
	}

	page, err := e.doc.Page(index)
	if err != nil {
		return "", err
	}

	start := time.Now()
	ent := e.extract(page)
	if e.stats != nil {
		e.stats.Record(time.Since(start), ent.source)
	}
	e.cache[index] = ent
	return ent.text, ent.err
}

// Source reports how a cached page was extracted. ok is false for pages not
// extracted yet.
func (e *Extractor) Source(index int) (src Source, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.cache[index]
	return ent.source, ok
}

// Cached returns the number of pages with cached results.
func (e *Extractor) Cached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// Reset drops every cached page. Called when the document is reloaded.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[int]entry)
}

func (e *Extractor) extract(page backend.Page) entry {
	index := page.Index()

	primary, err := primaryText(page)
	var reason string
	switch {
	case err != nil:
		reason = "primary failed: " + err.Error()
	case strings.TrimSpace(primary) == "":
		reason = "primary empty"
	case LooksGarbled(primary, e.thresholds):
		reason = "primary garbled"
	default:
		return entry{text: primary, source: SourcePrimary}
	}

	raw := rawText(page)
	if strings.TrimSpace(raw) == "" {
		f := &Failure{PageIndex: index, Reason: reason + "; raw scan empty"}
		e.log.Warn("page has no extractable text", "page", index, "reason", f.Reason)
		return entry{err: f}
	}
	e.log.Debug("using raw scan", "page", index, "reason", reason)
	return entry{text: raw, source: SourceFallback}
}

func primaryText(page backend.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return page.ExtractPrimaryText()
}

func rawText(page backend.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	return page.RawContentScan()
}
