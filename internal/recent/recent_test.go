package recent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MostRecentFirst(t *testing.T) {
	l := New(0)
	l.Record("/a")
	l.Record("/b")
	l.Record("/c")
	assert.Equal(t, []string{"/c", "/b", "/a"}, l.List())
	assert.Equal(t, DefaultCapacity, l.Capacity())
}

func TestRecord_EvictsLeastRecentlyUsed(t *testing.T) {
	l := New(10)
	for i := range 11 {
		l.Record(fmt.Sprintf("/doc%d", i))
	}
	list := l.List()
	require.Len(t, list, 10)
	assert.Equal(t, "/doc10", list[0])
	assert.NotContains(t, list, "/doc0")
}

func TestRecord_DuplicateMovesToFront(t *testing.T) {
	l := New(10)
	for i := range 10 {
		l.Record(fmt.Sprintf("/doc%d", i))
	}
	l.Record("/doc3")

	list := l.List()
	require.Len(t, list, 10, "a duplicate never grows the list")
	assert.Equal(t, "/doc3", list[0])
	assert.Equal(t, "/doc9", list[1])
	assert.Contains(t, list, "/doc0", "nothing is evicted by a duplicate")

	seen := map[string]bool{}
	for _, p := range list {
		assert.False(t, seen[p], "duplicate %q", p)
		seen[p] = true
	}
}

func TestRecord_IgnoresEmptyPath(t *testing.T) {
	l := New(3)
	l.Record("")
	assert.Equal(t, 0, l.Len())
}

func TestRemove(t *testing.T) {
	l := New(3)
	l.Record("/a")
	l.Record("/b")
	assert.True(t, l.Remove("/a"))
	assert.False(t, l.Remove("/a"))
	assert.Equal(t, []string{"/b"}, l.List())
}

func TestReplace_DedupesAndTruncates(t *testing.T) {
	l := New(3)
	l.Replace([]string{"/a", "", "/b", "/a", "/c", "/d"})
	assert.Equal(t, []string{"/a", "/b", "/c"}, l.List())

	l.Replace(nil)
	assert.Empty(t, l.List())
}

func TestList_ReturnsCopy(t *testing.T) {
	l := New(3)
	l.Record("/a")
	got := l.List()
	got[0] = "/mutated"
	assert.Equal(t, []string{"/a"}, l.List())
}
