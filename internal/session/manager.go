package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/robby/internal/backend"
	"github.com/dgallion1/robby/internal/extract"
	"github.com/dgallion1/robby/internal/recent"
	"github.com/dgallion1/robby/internal/search"
	"github.com/dgallion1/robby/internal/tabs"
	"golang.org/x/sync/errgroup"
)

// ErrShutdown is returned by operations on a manager that has shut down.
var ErrShutdown = errors.New("session manager is shut down")

// Options tune a Manager. Zero values take the defaults noted per field.
type Options struct {
	Thresholds       extract.Thresholds // DefaultThresholds when zero
	RecentCapacity   int                // recent.DefaultCapacity
	AutosaveInterval time.Duration      // 30s
	RestoreWorkers   int                // 4
	SaveRetries      int                // 3; retries after the first attempt
	RetryBase        time.Duration      // 1s
}

func (o Options) withDefaults() Options {
	if o.Thresholds == (extract.Thresholds{}) {
		o.Thresholds = extract.DefaultThresholds()
	}
	if o.RecentCapacity <= 0 {
		o.RecentCapacity = recent.DefaultCapacity
	}
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 30 * time.Second
	}
	if o.RestoreWorkers <= 0 {
		o.RestoreWorkers = 4
	}
	if o.SaveRetries < 0 {
		o.SaveRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = time.Second
	}
	return o
}

// openDoc is the per-tab runtime state that is not persisted. Its extractor
// is the single owner of the document's text cache.
type openDoc struct {
	ex     *extract.Extractor
	search *search.Session

	// mu orders close against a reload swapping in a new document.
	mu     sync.Mutex
	closed bool
}

// close cancels the search and closes the current document, once.
func (od *openDoc) close() error {
	od.mu.Lock()
	defer od.mu.Unlock()
	if od.closed {
		return nil
	}
	od.closed = true
	od.search.Close()
	return od.ex.Document().Close()
}

// Manager owns every open tab, the recent-files list and the session file.
// One Manager is created at startup and passed to whatever needs it.
//
// The saver goroutine started by Start is the only writer of the session
// file outside of SaveNow and Shutdown, which share its lock.
type Manager struct {
	log    *slog.Logger
	opener backend.Opener
	store  *Store
	stats  *extract.Stats
	opts   Options

	tabs   *tabs.Store
	recent *recent.List

	mu   sync.Mutex
	docs map[string]*openDoc

	saveMu  sync.Mutex
	saveReq chan struct{}
	dirty   atomic.Bool

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown atomic.Bool
	once     sync.Once
	finalErr error
}

// NewManager creates a Manager. stats may be nil.
func NewManager(store *Store, opener backend.Opener, stats *extract.Stats, opts Options, log *slog.Logger) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		log:     log,
		opener:  opener,
		store:   store,
		stats:   stats,
		opts:    opts,
		tabs:    tabs.NewStore(),
		recent:  recent.New(opts.RecentCapacity),
		docs:    make(map[string]*openDoc),
		saveReq: make(chan struct{}, 1),
	}
}

// Start launches the saver goroutine: requested saves run promptly, other
// changes are flushed by the autosave ticker.
func (m *Manager) Start(ctx context.Context) {
	saverCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.opts.AutosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-saverCtx.Done():
				return
			case <-m.saveReq:
				m.saveWithRetry(saverCtx)
			case <-ticker.C:
				if m.dirty.Load() {
					m.saveWithRetry(saverCtx)
				}
			}
		}
	}()
}

// Open opens path in a new tab at page 0 and records it as recent.
func (m *Manager) Open(path string) (tabs.Tab, error) {
	if m.shutdown.Load() {
		return tabs.Tab{}, ErrShutdown
	}
	doc, err := m.opener.Open(path)
	if err != nil {
		m.log.Warn("open document failed", "path", path, "error", err)
		return tabs.Tab{}, err
	}
	tab := m.attach(doc, tabs.NewState(doc.Path()))
	m.recent.Record(doc.Path())
	m.log.Info("document opened", "tab_id", tab.ID, "path", doc.Path(), "pages", tab.PageCount)
	m.requestSave()
	return tab, nil
}

// attach registers an opened document under a new tab. A persisted query is
// re-armed without extracting anything.
func (m *Manager) attach(doc backend.Document, state tabs.State) tabs.Tab {
	ex := extract.New(doc, m.opts.Thresholds, m.stats, m.log)
	od := &openDoc{ex: ex, search: search.NewSession(ex)}

	m.mu.Lock()
	tab := m.tabs.Add(state, doc.PageCount())
	m.docs[tab.ID] = od
	m.mu.Unlock()

	if tab.State.LastQuery != "" {
		od.search.Start(tab.State.LastQuery, search.Options{})
	}
	return tab
}

// Close closes a tab and its document, cancelling any search in flight.
func (m *Manager) Close(id string) error {
	if m.shutdown.Load() {
		return ErrShutdown
	}
	m.mu.Lock()
	od, ok := m.docs[id]
	if ok {
		delete(m.docs, id)
	}
	tab, err := m.tabs.Remove(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if ok {
		if cerr := od.close(); cerr != nil {
			m.log.Warn("close document", "tab_id", id, "error", cerr)
		}
	}
	m.log.Info("tab closed", "tab_id", id, "path", tab.State.Path)
	m.requestSave()
	return nil
}

// Reload re-reads a tab's document from disk, dropping its text cache and
// restarting its search. On failure the tab keeps the old document.
func (m *Manager) Reload(id string) (tabs.Tab, error) {
	if m.shutdown.Load() {
		return tabs.Tab{}, ErrShutdown
	}
	od, tab, err := m.lookup(id)
	if err != nil {
		return tabs.Tab{}, err
	}
	doc, err := m.opener.Open(tab.State.Path)
	if err != nil {
		return tabs.Tab{}, err
	}

	od.mu.Lock()
	if od.closed {
		// The tab was closed while the document was being read.
		od.mu.Unlock()
		if cerr := doc.Close(); cerr != nil {
			m.log.Warn("close reloaded document", "tab_id", id, "error", cerr)
		}
		return tabs.Tab{}, fmt.Errorf("%w: %s", tabs.ErrTabNotFound, id)
	}
	old := od.ex.Replace(doc)
	od.mu.Unlock()

	if cerr := old.Close(); cerr != nil {
		m.log.Warn("close replaced document", "tab_id", id, "error", cerr)
	}
	query, opts := od.search.Query()
	od.search.Start(query, opts)

	tab, err = m.tabs.SetPageCount(id, doc.PageCount())
	if err != nil {
		return tabs.Tab{}, err
	}
	m.log.Info("document reloaded", "tab_id", id, "pages", tab.PageCount)
	m.markDirty()
	return tab, nil
}

func (m *Manager) SetPage(id string, page int) (tabs.Tab, error) {
	return m.mutate(m.tabs.SetPage(id, page))
}

func (m *Manager) SetScroll(id string, offset float64) (tabs.Tab, error) {
	return m.mutate(m.tabs.SetScroll(id, offset))
}

func (m *Manager) SetZoom(id string, zoom float64) (tabs.Tab, error) {
	return m.mutate(m.tabs.SetZoom(id, zoom))
}

func (m *Manager) mutate(tab tabs.Tab, err error) (tabs.Tab, error) {
	if err == nil {
		m.markDirty()
	}
	return tab, err
}

// Search replaces the tab's query and returns its first match, moving the
// tab to that match's page. search.ErrNoMatches means nothing was found.
func (m *Manager) Search(id, query string, opts search.Options) (search.Match, error) {
	od, _, err := m.lookup(id)
	if err != nil {
		return search.Match{}, err
	}
	if _, err := m.tabs.SetQuery(id, query); err != nil {
		return search.Match{}, err
	}
	m.markDirty()

	od.search.Start(query, opts)
	match, err := od.search.Next()
	return m.navigate(id, match, err)
}

// NextMatch moves to the tab's next match, wrapping after the last.
func (m *Manager) NextMatch(id string) (search.Match, error) {
	od, _, err := m.lookup(id)
	if err != nil {
		return search.Match{}, err
	}
	match, err := od.search.Next()
	return m.navigate(id, match, err)
}

// PrevMatch moves to the tab's previous match, wrapping before the first.
func (m *Manager) PrevMatch(id string) (search.Match, error) {
	od, _, err := m.lookup(id)
	if err != nil {
		return search.Match{}, err
	}
	match, err := od.search.Prev()
	return m.navigate(id, match, err)
}

func (m *Manager) navigate(id string, match search.Match, err error) (search.Match, error) {
	if err != nil {
		return search.Match{}, err
	}
	if _, err := m.SetPage(id, match.Page); err != nil {
		return search.Match{}, err
	}
	return match, nil
}

// Matches returns the tab's matches found so far. With drain set the search
// first runs over every page.
func (m *Manager) Matches(id string, drain bool) ([]search.Match, bool, error) {
	od, _, err := m.lookup(id)
	if err != nil {
		return nil, false, err
	}
	if drain {
		all, err := od.search.Drain()
		return all, err == nil, err
	}
	matches, complete := od.search.Matches()
	return matches, complete, nil
}

// PageText returns the effective text of one page and how it was obtained.
// An *extract.Failure means the page has no searchable text.
func (m *Manager) PageText(id string, page int) (string, extract.Source, error) {
	od, _, err := m.lookup(id)
	if err != nil {
		return "", extract.SourceNone, err
	}
	text, err := od.ex.Text(page)
	src, _ := od.ex.Source(page)
	return text, src, err
}

func (m *Manager) Tab(id string) (tabs.Tab, error) { return m.tabs.Get(id) }

func (m *Manager) Tabs() []tabs.Tab { return m.tabs.List() }

func (m *Manager) MoveTab(id string, index int) error {
	if err := m.tabs.Move(id, index); err != nil {
		return err
	}
	m.markDirty()
	return nil
}

func (m *Manager) Recent() []string { return m.recent.List() }

// Stats returns page extraction statistics across all documents.
func (m *Manager) Stats() extract.StatsSnapshot {
	if m.stats == nil {
		return extract.StatsSnapshot{}
	}
	return m.stats.Snapshot()
}

// Snapshot captures the persistable state in tab order.
func (m *Manager) Snapshot() Snapshot {
	var snap Snapshot
	for _, t := range m.tabs.List() {
		snap.Tabs = append(snap.Tabs, t.State)
	}
	if r := m.recent.List(); len(r) > 0 {
		snap.Recent = r
	}
	return snap
}

func (m *Manager) lookup(id string) (*openDoc, tabs.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	od, ok := m.docs[id]
	if !ok {
		return nil, tabs.Tab{}, fmt.Errorf("%w: %s", tabs.ErrTabNotFound, id)
	}
	tab, err := m.tabs.Get(id)
	if err != nil {
		return nil, tabs.Tab{}, err
	}
	return od, tab, nil
}

// SkippedTab is a persisted tab that could not be restored.
type SkippedTab struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RestoreReport describes what Restore did.
type RestoreReport struct {
	Restored []tabs.Tab   `json:"restored"`
	Skipped  []SkippedTab `json:"skipped"`
	// LoadErr is set when the session file was unreadable and restore
	// started from an empty snapshot.
	LoadErr error `json:"-"`
}

// Restore loads the session file and reopens its documents. Documents are
// opened in parallel; tabs are added in their persisted order. A tab whose
// document cannot be opened is skipped. Restore never fails: a bad session
// file means starting empty.
func (m *Manager) Restore(ctx context.Context) RestoreReport {
	var report RestoreReport

	snap, err := m.store.Load()
	if err != nil {
		m.log.Warn("session file unreadable, starting empty", "error", err)
		report.LoadErr = err
		snap = Snapshot{}
	}
	m.recent.Replace(snap.Recent)

	docs := make([]backend.Document, len(snap.Tabs))
	errs := make([]error, len(snap.Tabs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.RestoreWorkers)
	for i, st := range snap.Tabs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			docs[i], errs[i] = m.opener.Open(st.Path)
			return nil
		})
	}
	g.Wait()

	for i, st := range snap.Tabs {
		if errs[i] != nil {
			m.log.Warn("skipping tab on restore", "path", st.Path, "error", errs[i])
			report.Skipped = append(report.Skipped, SkippedTab{Path: st.Path, Reason: errs[i].Error()})
			continue
		}
		tab := m.attach(docs[i], st)
		report.Restored = append(report.Restored, tab)
	}

	m.log.Info("session restored",
		"restored", len(report.Restored),
		"skipped", len(report.Skipped),
		"recent", m.recent.Len(),
	)
	return report
}

// SaveNow writes the snapshot synchronously.
func (m *Manager) SaveNow() error {
	return m.saveOnce()
}

func (m *Manager) requestSave() {
	m.dirty.Store(true)
	select {
	case m.saveReq <- struct{}{}:
	default:
		// A save is already pending and will include this change.
	}
}

func (m *Manager) markDirty() { m.dirty.Store(true) }

func (m *Manager) saveOnce() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.dirty.Store(false)
	if err := m.store.Save(m.Snapshot()); err != nil {
		m.dirty.Store(true)
		return err
	}
	return nil
}

// saveWithRetry retries failed saves with jittered backoff until ctx ends.
func (m *Manager) saveWithRetry(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= m.opts.SaveRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(m.opts.RetryBase, attempt-1)
			m.log.Warn("session save failed, retrying", "attempt", attempt, "backoff", wait, "error", err)
			select {
			case <-ctx.Done():
				return err
			case <-time.After(wait):
			}
		}
		if err = m.saveOnce(); err == nil {
			return nil
		}
	}
	m.log.Error("session save failed", "attempts", m.opts.SaveRetries+1, "error", err)
	return err
}

// Shutdown stops the saver, cancels searches, writes the final snapshot and
// closes every document. The final save's error is returned so the caller
// can exit non-zero; it is retried until ctx ends. Later calls return the
// same result.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.shutdown.Store(true)
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()

		m.mu.Lock()
		docs := make([]*openDoc, 0, len(m.docs))
		for _, od := range m.docs {
			docs = append(docs, od)
		}
		m.docs = make(map[string]*openDoc)
		m.mu.Unlock()
		for _, od := range docs {
			od.search.Close()
		}

		m.finalErr = m.saveWithRetry(ctx)
		if m.finalErr == nil {
			m.log.Info("session saved", "path", m.store.Path(), "tabs", m.tabs.Len())
		}

		for _, od := range docs {
			if err := od.close(); err != nil {
				m.log.Warn("close document", "path", od.ex.Document().Path(), "error", err)
			}
		}
	})
	return m.finalErr
}
