package machine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

// snapshotAt builds a one-AS snapshot for training tests.
func snapshotAt(t *testing.T, hour int, profiles ...*models.Profile) *mrt.Snapshot {
	t.Helper()
	asMap := make(map[string]*models.Profile, len(profiles))
	for _, profile := range profiles {
		asMap[profile.ID] = profile
	}
	return &mrt.Snapshot{
		FilePath:  "rib.20131101.1200.bz2",
		Timestamp: time.Date(2013, 11, 1, hour, 0, 0, 0, time.UTC),
		ASMap:     asMap,
	}
}

func mustProfile(t *testing.T, id, location string, mid, end int, sizes map[int]int, prefixes, neighbours []string) *models.Profile {
	t.Helper()
	p, err := models.NewProfile(id, location, mid, end, sizes, prefixes, neighbours)
	require.NoError(t, err)
	return p
}

func TestComputeStats_Empty(t *testing.T) {
	s := computeStats(nil)
	assert.True(t, s.NoData())
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, -1.0, s.Slope)
}

func TestComputeStats_Constant(t *testing.T) {
	s := computeStats([]float64{5, 5, 5, 5})
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 0.0, s.Skewness)
	assert.Equal(t, 0.0, s.Slope)
	assert.False(t, s.NoData())
}

func TestComputeStats_SingleObservation(t *testing.T) {
	s := computeStats([]float64{7})
	assert.Equal(t, 7.0, s.Min)
	assert.Equal(t, 7.0, s.Max)
	assert.Equal(t, 7.0, s.Mean)
	// population standard deviation: one observation is certainty, not NaN
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 0.0, s.Slope)
}

func TestComputeStats_LinearSequence(t *testing.T) {
	s := computeStats([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)
	assert.InDelta(t, math.Sqrt(2), s.StdDev, 1e-9)
	assert.InDelta(t, 0.0, s.Skewness, 1e-9)
	assert.InDelta(t, 1.0, s.Slope, 1e-9)
}

func TestComputeStats_OutlierClipped(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 100}
	s := computeStats(values)
	// q1 == q3 == 1, so the fence collapses and the outlier sits outside it
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.Greater(t, s.Mean, 1.0)
}

func TestPopStdDev(t *testing.T) {
	assert.Equal(t, 0.0, popStdDev([]float64{4}, 4))
	assert.InDelta(t, math.Sqrt(2.0/3.0), popStdDev([]float64{1, 2, 3}, 2), 1e-9)
	assert.Equal(t, 0.0, popStdDev(nil, 0))
}

func TestMode(t *testing.T) {
	assert.Equal(t, "US", mode([]string{"US", "US", "BR"}))
	assert.Equal(t, "BR", mode([]string{"BR", "US", "US", "BR"}), "ties go to the earliest first occurrence")
	assert.Equal(t, "NL", mode([]string{"NL"}))
	assert.Equal(t, "", mode(nil))
}

func TestDedupeSorted(t *testing.T) {
	a := snapshotAt(t, 12)
	b := snapshotAt(t, 14)
	dup := snapshotAt(t, 12)

	sorted := dedupeSorted([]*mrt.Snapshot{b, a, dup})
	require.Len(t, sorted, 2)
	assert.Same(t, a, sorted[0], "first snapshot wins on a duplicate timestamp")
	assert.Same(t, b, sorted[1])
}

func TestTrain(t *testing.T) {
	first := snapshotAt(t, 12,
		mustProfile(t, "64502", "NL", 4, 6, map[int]int{2: 1},
			[]string{"198.51.100.0/24"}, []string{"64500"}))
	second := snapshotAt(t, 14,
		mustProfile(t, "64502", "NL", 4, 6, map[int]int{3: 2},
			[]string{"203.0.113.0/24"}, []string{"64501"}))

	m := New(DefaultConfig())
	m.Train([]*mrt.Snapshot{second, first})

	require.Len(t, m.Dataset, 2)
	assert.True(t, m.Dataset[0].Before(m.Dataset[1]))

	baseline := m.TrainData["64502"]
	require.NotNil(t, baseline)

	timesSeen := baseline.Stats[models.PropTimesSeen]
	assert.Equal(t, 10.0, timesSeen.Min)
	assert.Equal(t, 10.0, timesSeen.Max)
	assert.Equal(t, 0.0, timesSeen.StdDev)

	// location carries only the mode
	locationStats := baseline.Stats[models.PropLocation]
	assert.True(t, locationStats.NoData())
	assert.Equal(t, "NL", locationStats.Mode)

	// individual path lengths pool across snapshots: 2, 3, 3
	pathStats := baseline.Stats[models.PropPathSizes]
	assert.InDelta(t, 8.0/3.0, pathStats.Mean, 1e-9)

	// prefix and neighbour sets union over the history
	assert.Len(t, baseline.AnnouncedPrefixes, 2)
	assert.Contains(t, baseline.Neighbours, "64500")
	assert.Contains(t, baseline.Neighbours, "64501")
}

func TestTrain_NoOriginatedPaths(t *testing.T) {
	snapshot := snapshotAt(t, 12,
		mustProfile(t, "64500", "US", 3, 0, nil, nil, []string{"64502"}))

	m := New(DefaultConfig())
	m.Train([]*mrt.Snapshot{snapshot})

	baseline := m.TrainData["64500"]
	require.NotNil(t, baseline)
	assert.True(t, baseline.Stats[models.PropPathSizes].NoData())
	assert.Equal(t, 0.0, baseline.Stats[models.PropMeanPathSize].Mean)
}

func TestTrain_Retrains(t *testing.T) {
	m := New(DefaultConfig())
	m.Train([]*mrt.Snapshot{snapshotAt(t, 12,
		mustProfile(t, "64500", "US", 1, 1, nil, nil, nil))})
	require.Contains(t, m.TrainData, "64500")

	m.Train([]*mrt.Snapshot{snapshotAt(t, 14,
		mustProfile(t, "64502", "NL", 1, 1, nil, nil, nil))})
	assert.NotContains(t, m.TrainData, "64500", "training starts from scratch")
	assert.Contains(t, m.TrainData, "64502")
}
