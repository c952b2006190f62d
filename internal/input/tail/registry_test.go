package tail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NewFileStartsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, lineA)

	r := NewRegistry()
	cursors := r.Reconcile([]string{path})

	require.Len(t, cursors, 1)
	assert.Equal(t, path, cursors[0].Path)
	assert.Equal(t, int64(0), cursors[0].Offset)
	assert.False(t, cursors[0].Pending)
	assert.Equal(t, int64(len(lineA)), cursors[0].Size)
}

func TestRegistry_RenameKeepsOffset(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	writeFile(t, a, lineA+lineB)

	r := NewRegistry()
	first := r.Reconcile([]string{a})
	require.Len(t, first, 1)
	first[0].Offset = 22
	first[0].Pending = true

	require.NoError(t, os.Rename(a, b))
	second := r.Reconcile([]string{b})

	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])
	assert.Equal(t, b, second[0].Path)
	assert.Equal(t, int64(22), second[0].Offset)
	assert.True(t, second[0].Pending)
}

func TestRegistry_RecreatedFileStartsOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, lineA)

	r := NewRegistry()
	old := r.Reconcile([]string{path})[0]
	old.Offset = int64(len(lineA))

	rotated := filepath.Join(dir, "app.log.1")
	require.NoError(t, os.Rename(path, rotated))
	writeFile(t, path, lineB)

	cursors := r.Reconcile([]string{path, rotated})
	require.Len(t, cursors, 2)

	assert.NotSame(t, old, cursors[0])
	assert.Equal(t, int64(0), cursors[0].Offset)
	assert.Same(t, old, cursors[1])
	assert.Equal(t, rotated, cursors[1].Path)
	assert.Equal(t, int64(len(lineA)), cursors[1].Offset)
}

func TestRegistry_VanishedFilesAreDropped(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	writeFile(t, a, lineA)
	writeFile(t, b, lineB)

	r := NewRegistry()
	require.Len(t, r.Reconcile([]string{a, b}), 2)
	bCursor := r.Cursors()[1]

	require.NoError(t, os.Remove(a))
	cursors := r.Reconcile([]string{a, b})

	require.Len(t, cursors, 1, "stat failure drops the path for this cycle")
	assert.Same(t, bCursor, cursors[0])
	_, ok := r.Lookup(bCursor.ID)
	assert.True(t, ok)

	cursors = r.Reconcile(nil)
	assert.Empty(t, cursors)
	_, ok = r.Lookup(bCursor.ID)
	assert.False(t, ok)
}

func TestRegistry_IdempotentRescan(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")}
	writeFile(t, paths[0], lineA)
	writeFile(t, paths[1], lineB+lineC)

	r := NewRegistry()
	first := r.Reconcile(paths)
	first[0].Offset = 5
	first[1].Offset = 22

	type snapshot struct {
		path   string
		offset int64
	}
	snap := func(cs []*FileCursor) []snapshot {
		out := make([]snapshot, 0, len(cs))
		for _, c := range cs {
			out = append(out, snapshot{c.Path, c.Offset})
		}
		return out
	}

	want := snap(first)
	assert.Equal(t, want, snap(r.Reconcile(paths)))
	assert.Equal(t, want, snap(r.Reconcile(paths)))
}

func TestRegistry_SameFileUnderTwoNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	link := filepath.Join(dir, "app-link.log")
	writeFile(t, path, lineA)
	require.NoError(t, os.Link(path, link))

	cursors := NewRegistry().Reconcile([]string{link, path})

	require.Len(t, cursors, 1)
	assert.Equal(t, link, cursors[0].Path)
}

func TestRegistry_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive.log")
	require.NoError(t, os.Mkdir(sub, 0o755))

	assert.Empty(t, NewRegistry().Reconcile([]string{sub}))
}

func TestIdentify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	link := filepath.Join(dir, "link.log")
	writeFile(t, path, lineA)
	require.NoError(t, os.Link(path, link))

	id, info, err := Identify(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(lineA)), info.Size())

	linked, _, err := Identify(link)
	require.NoError(t, err)
	assert.Equal(t, id, linked)

	_, _, err = Identify(filepath.Join(dir, "missing.log"))
	assert.True(t, os.IsNotExist(err))
}
