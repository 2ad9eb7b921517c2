package search

import (
	"context"
	"sync"
	"sync/atomic"
)

// Session is the search state of one tab. Starting a new query cancels the
// search in flight; matches from a superseded query are never recorded.
type Session struct {
	src TextSource

	// cancelMu is separate from mu so Start can cancel a search while
	// another goroutine holds mu inside a page extraction.
	cancelMu sync.Mutex
	cancel   context.CancelFunc
	gen      atomic.Uint64

	mu       sync.Mutex
	query    string
	opts     Options
	it       *Iterator
	matches  []Match
	complete bool
	cur      int
}

func NewSession(src TextSource) *Session {
	return &Session{src: src, cur: -1, complete: true}
}

// Start replaces the session's query. No page is extracted until the
// caller navigates.
func (s *Session) Start(query string, opts Options) {
	ctx, cancel := context.WithCancel(context.Background())

	s.cancelMu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	gen := s.gen.Add(1)
	s.cancelMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		// A later Start already owns the session.
		return
	}
	s.query = query
	s.opts = opts
	s.it = Search(ctx, s.src, query, opts)
	s.matches = nil
	s.complete = query == ""
	s.cur = -1
}

// Query returns the active query and options.
func (s *Session) Query() (string, Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.opts
}

// Next advances to the following match, extracting more pages if needed, and
// wraps to the first match after the last.
func (s *Session) Next() (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur+1 < len(s.matches) {
		s.cur++
		return s.matches[s.cur], nil
	}
	if !s.complete {
		m, ok, err := s.pullLocked()
		if err != nil {
			return Match{}, err
		}
		if ok {
			s.cur = len(s.matches) - 1
			return m, nil
		}
	}
	if len(s.matches) == 0 {
		return Match{}, ErrNoMatches
	}
	s.cur = 0
	return s.matches[0], nil
}

// Prev steps back one match. From the first match (or before any
// navigation) it wraps to the last, which drains the search.
func (s *Session) Prev() (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur > 0 {
		s.cur--
		return s.matches[s.cur], nil
	}
	if err := s.drainLocked(); err != nil {
		return Match{}, err
	}
	if len(s.matches) == 0 {
		return Match{}, ErrNoMatches
	}
	s.cur = len(s.matches) - 1
	return s.matches[s.cur], nil
}

// Current returns the match last navigated to.
func (s *Session) Current() (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur < 0 || s.cur >= len(s.matches) {
		return Match{}, false
	}
	return s.matches[s.cur], true
}

// Matches returns a copy of the matches found so far and whether the search
// has covered every page.
func (s *Session) Matches() ([]Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Match, len(s.matches))
	copy(out, s.matches)
	return out, s.complete
}

// Drain runs the search to completion and returns every match.
func (s *Session) Drain() ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.drainLocked(); err != nil {
		return nil, err
	}
	out := make([]Match, len(s.matches))
	copy(out, s.matches)
	return out, nil
}

// Close cancels any search in flight. Later navigation reports the
// cancellation.
func (s *Session) Close() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) drainLocked() error {
	for !s.complete {
		if _, _, err := s.pullLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) pullLocked() (Match, bool, error) {
	m, ok := s.it.Next()
	if !ok {
		if err := s.it.Err(); err != nil {
			return Match{}, false, err
		}
		s.complete = true
		return Match{}, false, nil
	}
	s.matches = append(s.matches, m)
	return m, true, nil
}
