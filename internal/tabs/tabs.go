// Package tabs keeps the ordered list of open tabs and their view state.
package tabs

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultZoom = 1.0
	MinZoom     = 0.1
	MaxZoom     = 8.0
)

var (
	ErrTabNotFound = errors.New("tab not found")
	ErrInvalidZoom = errors.New("zoom must be positive")
)

// State is the persisted view state of one tab.
type State struct {
	Path         string  `json:"path"`
	Page         int     `json:"page"`
	ScrollOffset float64 `json:"scroll_offset"` // fraction of page height
	Zoom         float64 `json:"zoom"`
	LastQuery    string  `json:"last_query,omitempty"`
}

// NewState returns the state of a freshly opened document.
func NewState(path string) State {
	return State{Path: path, Zoom: DefaultZoom}
}

// Normalize clamps the state into range for a document of pageCount pages.
// A non-positive or non-finite zoom resets to DefaultZoom.
func (s State) Normalize(pageCount int) State {
	s.Page = clampPage(s.Page, pageCount)
	s.ScrollOffset = clampScroll(s.ScrollOffset)
	if s.Zoom <= 0 || math.IsNaN(s.Zoom) || math.IsInf(s.Zoom, 0) {
		s.Zoom = DefaultZoom
	}
	s.Zoom = min(max(s.Zoom, MinZoom), MaxZoom)
	return s
}

func clampPage(page, pageCount int) int {
	if page >= pageCount {
		page = pageCount - 1
	}
	return max(page, 0)
}

func clampScroll(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

// Tab is a read-only copy of one open tab.
type Tab struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	PageCount int       `json:"page_count"`
	OpenedAt  time.Time `json:"opened_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a thread-safe ordered tab registry keyed by opaque ids.
type Store struct {
	mu    sync.Mutex
	order []string
	tabs  map[string]*Tab
	ids   *idGenerator
}

func NewStore() *Store {
	return &Store{
		tabs: make(map[string]*Tab),
		ids:  newIDGenerator(),
	}
}

// Add appends a tab for a document with pageCount pages. state is
// normalized first.
func (s *Store) Add(state State, pageCount int) Tab {
	now := time.Now()
	t := &Tab{
		ID:        s.ids.next(),
		State:     state.Normalize(pageCount),
		PageCount: pageCount,
		OpenedAt:  now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[t.ID] = t
	s.order = append(s.order, t.ID)
	return *t
}

func (s *Store) Remove(id string) (Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok {
		return Tab{}, notFound(id)
	}
	delete(s.tabs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *t, nil
}

func (s *Store) Get(id string) (Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok {
		return Tab{}, notFound(id)
	}
	return *t, nil
}

// List returns every tab in display order.
func (s *Store) List() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tab, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tabs[id])
	}
	return out
}

func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// SetPage moves to page, clamped to the document.
func (s *Store) SetPage(id string, page int) (Tab, error) {
	return s.update(id, func(t *Tab) error {
		t.State.Page = clampPage(page, t.PageCount)
		return nil
	})
}

// SetScroll sets the scroll offset, clamped to [0, 1].
func (s *Store) SetScroll(id string, offset float64) (Tab, error) {
	return s.update(id, func(t *Tab) error {
		t.State.ScrollOffset = clampScroll(offset)
		return nil
	})
}

// SetZoom rejects non-positive zoom and clamps the rest to [MinZoom, MaxZoom].
func (s *Store) SetZoom(id string, zoom float64) (Tab, error) {
	if zoom <= 0 || math.IsNaN(zoom) {
		return Tab{}, fmt.Errorf("%w: %v", ErrInvalidZoom, zoom)
	}
	return s.update(id, func(t *Tab) error {
		t.State.Zoom = min(max(zoom, MinZoom), MaxZoom)
		return nil
	})
}

func (s *Store) SetQuery(id, query string) (Tab, error) {
	return s.update(id, func(t *Tab) error {
		t.State.LastQuery = query
		return nil
	})
}

// SetPageCount records a new page count after a reload and re-clamps the
// current page.
func (s *Store) SetPageCount(id string, pageCount int) (Tab, error) {
	return s.update(id, func(t *Tab) error {
		t.PageCount = pageCount
		t.State.Page = clampPage(t.State.Page, pageCount)
		return nil
	})
}

// Move places tab id at position index, clamped to the list bounds.
func (s *Store) Move(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := -1
	for i, oid := range s.order {
		if oid == id {
			from = i
			break
		}
	}
	if from < 0 {
		return notFound(id)
	}
	index = min(max(index, 0), len(s.order)-1)
	s.order = append(s.order[:from], s.order[from+1:]...)
	s.order = append(s.order[:index], append([]string{id}, s.order[index:]...)...)
	return nil
}

func (s *Store) update(id string, fn func(t *Tab) error) (Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok {
		return Tab{}, notFound(id)
	}
	if err := fn(t); err != nil {
		return Tab{}, err
	}
	t.UpdatedAt = time.Now()
	return *t, nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrTabNotFound, id)
}
