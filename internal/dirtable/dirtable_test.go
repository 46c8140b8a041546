package dirtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsIdempotent(t *testing.T) {
	tbl := New()
	i1 := tbl.Intern("/data/a")
	i2 := tbl.Intern("/data/b")
	i3 := tbl.Intern("/data/a")

	assert.Equal(t, i1, i3)
	assert.NotEqual(t, i1, i2)
	assert.Equal(t, 2, tbl.Len())
}

func TestPathRoundTrip(t *testing.T) {
	tbl := New()
	i := tbl.Intern("/data/a")

	p, ok := tbl.Path(i)
	require.True(t, ok)
	assert.Equal(t, "/data/a", p)

	_, ok = tbl.Path(99)
	assert.False(t, ok)
}

func TestSnapshotAndFromSlicePreservePositions(t *testing.T) {
	tbl := New()
	tbl.Intern("/a")
	tbl.Intern("/b")
	tbl.Intern("/c")

	snap := tbl.Snapshot()
	rebuilt := FromSlice(snap)

	for i, p := range snap {
		got, ok := rebuilt.Path(i)
		require.True(t, ok)
		assert.Equal(t, p, got)

		idx, ok := rebuilt.Lookup(p)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
}

func TestLookupMissing(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup("/nope")
	assert.False(t, ok)
}
