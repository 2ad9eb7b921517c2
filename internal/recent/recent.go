// Package recent keeps a bounded most-recently-used list of document paths.
package recent

import "sync"

// DefaultCapacity is the number of paths kept when no capacity is configured.
const DefaultCapacity = 10

// List is a most-recent-first list of unique paths. It does no I/O; the
// session store persists it.
type List struct {
	mu       sync.Mutex
	capacity int
	paths    []string
}

// New creates a List. A non-positive capacity means DefaultCapacity.
func New(capacity int) *List {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &List{capacity: capacity, paths: make([]string, 0, capacity)}
}

// Record moves path to the front, inserting it if absent and evicting the
// oldest entry when the list is full.
func (l *List) Record(path string) {
	if path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = prepend(l.paths, path, l.capacity)
}

// List returns a copy, most recent first.
func (l *List) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// Remove drops path. It reports whether the path was present.
func (l *List) Remove(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.paths {
		if p == path {
			l.paths = append(l.paths[:i], l.paths[i+1:]...)
			return true
		}
	}
	return false
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

func (l *List) Capacity() int { return l.capacity }

// Replace loads paths as stored, most recent first. Empty entries and later
// duplicates are dropped and the result is truncated to capacity.
func (l *List) Replace(paths []string) {
	out := make([]string, 0, l.capacity)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == l.capacity {
			break
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = out
}

func prepend(paths []string, path string, capacity int) []string {
	for i, p := range paths {
		if p == path {
			copy(paths[1:i+1], paths[:i])
			paths[0] = path
			return paths
		}
	}
	if len(paths) < capacity {
		paths = append(paths, "")
	}
	copy(paths[1:], paths)
	paths[0] = path
	return paths
}
