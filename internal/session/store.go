// Package session persists and restores the open-tab state and recent-files
// list, and owns the live state between restarts through Manager.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/robby/internal/recent"
	"github.com/dgallion1/robby/internal/tabs"
	"github.com/pelletier/go-toml/v2"
)

// FormatVersion is written to every session file.
const FormatVersion = 1

// Snapshot is everything persisted between runs. Load never returns empty
// non-nil lists, so a snapshot saved with Tabs: []tabs.State{} loads back
// with Tabs == nil.
type Snapshot struct {
	Tabs   []tabs.State `json:"tabs"`
	Recent []string     `json:"recent"`
}

// PersistError reports a snapshot that could not be written. The previous
// file, if any, is left intact.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save session %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// LoadError reports an unreadable or corrupt session file. Callers start
// with an empty snapshot.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load session %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// On-disk layout. Pointer fields distinguish a missing key from a zero value
// so defaults can be applied.
type fileSnapshot struct {
	Version int       `toml:"version"`
	Recent  []string  `toml:"recent"`
	Tabs    []fileTab `toml:"tabs"`
}

type fileTab struct {
	Path         string   `toml:"path"`
	Page         *int     `toml:"page"`
	ScrollOffset *float64 `toml:"scroll_offset"`
	Zoom         *float64 `toml:"zoom"`
	LastQuery    string   `toml:"last_query,omitempty"`
}

// Store reads and writes one session file.
type Store struct {
	path      string
	maxRecent int
	log       *slog.Logger
}

// NewStore creates a Store for path. maxRecent bounds the recent list read
// back from disk; non-positive means recent.DefaultCapacity.
func NewStore(path string, maxRecent int, log *slog.Logger) *Store {
	if maxRecent <= 0 {
		maxRecent = recent.DefaultCapacity
	}
	return &Store{path: path, maxRecent: maxRecent, log: log.With("session_file", path)}
}

// DefaultPath is session.toml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "robby_reader", "session.toml"), nil
}

func (s *Store) Path() string { return s.path }

// Save writes snap atomically: a crash mid-write leaves the previous file.
func (s *Store) Save(snap Snapshot) error {
	out := fileSnapshot{Version: FormatVersion, Recent: snap.Recent}
	for _, st := range snap.Tabs {
		out.Tabs = append(out.Tabs, fileTab{
			Path:         st.Path,
			Page:         &st.Page,
			ScrollOffset: &st.ScrollOffset,
			Zoom:         &st.Zoom,
			LastQuery:    st.LastQuery,
		})
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return &PersistError{Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &PersistError{Path: s.path, Err: fmt.Errorf("create dir: %w", err)}
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// Load reads the session file. A missing file is an empty snapshot, not an
// error; anything unreadable is a *LoadError.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, &LoadError{Path: s.path, Reason: err.Error(), Err: err}
	}

	var raw fileSnapshot
	if err := toml.Unmarshal(data, &raw); err != nil {
		reason := err.Error()
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			reason = fmt.Sprintf("line %d column %d: %s", row, col, de.Error())
		}
		return Snapshot{}, &LoadError{Path: s.path, Reason: reason, Err: err}
	}

	switch {
	case raw.Version <= 0:
		return Snapshot{}, &LoadError{Path: s.path, Reason: "missing or invalid version"}
	case raw.Version > FormatVersion:
		s.log.Warn("session file written by a newer version, reading known fields",
			"version", raw.Version, "supported", FormatVersion)
	}

	var snap Snapshot
	for i, ft := range raw.Tabs {
		if ft.Path == "" {
			s.log.Warn("skipping session tab without path", "index", i)
			continue
		}
		snap.Tabs = append(snap.Tabs, ft.state())
	}

	list := recent.New(s.maxRecent)
	list.Replace(raw.Recent)
	if paths := list.List(); len(paths) > 0 {
		snap.Recent = paths
	}
	return snap, nil
}

func (ft fileTab) state() tabs.State {
	st := tabs.NewState(ft.Path)
	st.LastQuery = ft.LastQuery
	if ft.Page != nil {
		st.Page = *ft.Page
	}
	if ft.ScrollOffset != nil {
		st.ScrollOffset = *ft.ScrollOffset
	}
	if ft.Zoom != nil {
		st.Zoom = *ft.Zoom
	}
	return st
}

// writeFileAtomic writes through a temp file in the target directory, syncs
// it, and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	// Persist the rename itself. Not every platform can fsync a directory.
	if d, derr := os.Open(dir); derr == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
