package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/robby/internal/tabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "robby_reader", "session.toml"), 0, testLogger())
}

func TestStore_RoundTrip(t *testing.T) {
	var tenRecents []string
	for i := range 10 {
		tenRecents = append(tenRecents, fmt.Sprintf("/docs/recent-%d.pdf", i))
	}

	cases := map[string]Snapshot{
		"empty": {},
		"one tab": {
			Tabs: []tabs.State{{Path: "/docs/a.pdf", Page: 3, ScrollOffset: 0.25, Zoom: 1.5, LastQuery: "systems"}},
		},
		"many tabs and full recents": {
			Tabs: []tabs.State{
				{Path: "/docs/a.pdf", Page: 0, ScrollOffset: 0, Zoom: 1},
				{Path: "/docs/b c.md", Page: 12, ScrollOffset: 0.3333333333333333, Zoom: 0.75, LastQuery: `quote " and \ slash`},
				{Path: "/docs/ünïcode.docx", Page: 1, ScrollOffset: 1, Zoom: 8},
			},
			Recent: tenRecents,
		},
		"recents only": {Recent: []string{"/docs/x.txt"}},
	}

	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t)
			require.NoError(t, store.Save(snap))

			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, snap, got)
		})
	}
}

func TestStore_EmptyListsLoadAsNil(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Snapshot{Tabs: []tabs.State{}, Recent: []string{}}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, got)
	assert.Nil(t, got.Tabs)
	assert.Nil(t, got.Recent)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)
	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("version = 1\n[[tabs]\npath = "), 0o644))

	snap, err := store.Load()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, store.Path(), le.Path)
	assert.Contains(t, le.Reason, "line")
	assert.Equal(t, Snapshot{}, snap)
}

func TestStore_MissingVersion(t *testing.T) {
	store := newTestStore(t)
	writeSession(t, store, "recent = [\"/a\"]\n")

	_, err := store.Load()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Reason, "version")
}

func TestStore_WrongTypeIsLoadError(t *testing.T) {
	store := newTestStore(t)
	writeSession(t, store, "version = 1\n[[tabs]]\npath = \"/a\"\npage = \"three\"\n")

	_, err := store.Load()
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestStore_DefaultsAndUnknownFields(t *testing.T) {
	store := newTestStore(t)
	writeSession(t, store, `version = 1
recent = ["/docs/a.pdf", "", "/docs/a.pdf", "/docs/b.pdf"]
theme = "dark"

[[tabs]]
path = "/docs/a.pdf"
pinned = true

[[tabs]]
page = 4

[[tabs]]
path = "/docs/b.pdf"
page = 2
zoom = 2

[tabs.extra]
color = "red"
`)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		Tabs: []tabs.State{
			{Path: "/docs/a.pdf", Page: 0, ScrollOffset: 0, Zoom: 1},
			{Path: "/docs/b.pdf", Page: 2, ScrollOffset: 0, Zoom: 2},
		},
		Recent: []string{"/docs/a.pdf", "/docs/b.pdf"},
	}, snap)
}

func TestStore_NewerVersionReadBestEffort(t *testing.T) {
	store := newTestStore(t)
	writeSession(t, store, "version = 7\nrecent = [\"/a\"]\n")

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, snap.Recent)
}

func TestStore_RecentsTruncated(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "s.toml"), 2, testLogger())
	require.NoError(t, store.Save(Snapshot{Recent: []string{"/a", "/b", "/c"}}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, snap.Recent)
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Snapshot{Recent: []string{"/first"}}))
	require.NoError(t, store.Save(Snapshot{Recent: []string{"/second"}}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/second"}, snap.Recent)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file %q left behind", e.Name())
	}

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestStore_FailedSaveKeepsPreviousSnapshot(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Snapshot{Recent: []string{"/kept"}}))

	// A directory where the temp file would be renamed to makes the
	// rename fail after the temp file was fully written.
	blocked := NewStore(filepath.Join(filepath.Dir(store.Path()), "dir.toml"), 0, testLogger())
	require.NoError(t, os.MkdirAll(filepath.Join(blocked.Path(), "child"), 0o755))

	err := blocked.Save(Snapshot{Recent: []string{"/lost"}})
	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, blocked.Path(), pe.Path)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/kept"}, snap.Recent)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file %q left behind", e.Name())
	}
}

func TestStore_UnwritableDirectory(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0o644))

	store := NewStore(filepath.Join(parent, "session.toml"), 0, testLogger())
	err := store.Save(Snapshot{})
	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.True(t, errors.Unwrap(err) != nil)
}

func writeSession(t *testing.T, store *Store, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))
}
