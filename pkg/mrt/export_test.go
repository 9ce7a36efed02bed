package mrt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	origin, err := models.NewProfile("64502", "NL", 0, 2, map[int]int{2: 2},
		[]string{"198.51.100.0/24", "2001:db8::/32"}, []string{"64500"})
	require.NoError(t, err)
	transit, err := models.NewProfile("64500", "US", 2, 0, nil, nil,
		[]string{"64496", "64502"})
	require.NoError(t, err)

	return &Snapshot{
		FilePath:  "data/raw/rib.20131101.1200.bz2",
		Timestamp: time.Date(2013, 11, 1, 12, 0, 0, 0, time.UTC),
		ASMap: map[string]*models.Profile{
			"64502": origin,
			"64500": transit,
		},
	}
}

func assertSameASMap(t *testing.T, want, got map[string]*models.Profile) {
	t.Helper()

	require.Len(t, got, len(want))
	for id, expected := range want {
		actual := got[id]
		require.NotNil(t, actual, "AS %s missing after round trip", id)
		assert.Equal(t, expected.Location, actual.Location)
		assert.Equal(t, expected.MidPathCount, actual.MidPathCount)
		assert.Equal(t, expected.EndPathCount, actual.EndPathCount)
		assert.Equal(t, expected.PathSizes, actual.PathSizes)
		assert.Equal(t, expected.PrefixList(), actual.PrefixList())
		assert.Equal(t, expected.NeighbourList(), actual.NeighbourList())
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	snapshot := testSnapshot(t)
	dir := t.TempDir()

	path, err := snapshot.ExportJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rib.20131101.1200.json"), path)

	loaded, err := LoadSnapshot(path, Options{})
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(loaded))
	assertSameASMap(t, snapshot.ASMap, loaded.ASMap)
}

func TestSnapshotCSVRoundTrip(t *testing.T) {
	snapshot := testSnapshot(t)
	dir := t.TempDir()

	path, err := snapshot.ExportCSV(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rib.20131101.1200.csv"), path)

	loaded, err := LoadSnapshot(path, Options{})
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(loaded))
	assertSameASMap(t, snapshot.ASMap, loaded.ASMap)
}

func TestDecodePathSizes(t *testing.T) {
	sizes, err := decodePathSizes(`{"2":3,"5":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 3, 5: 1}, sizes)

	sizes, err = decodePathSizes("")
	require.NoError(t, err)
	assert.Nil(t, sizes)

	_, err = decodePathSizes(`{"two":3}`)
	assert.Error(t, err)
}
