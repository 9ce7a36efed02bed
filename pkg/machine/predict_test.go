package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

func trainedMachine(t *testing.T) *Machine {
	t.Helper()
	m := New(DefaultConfig())
	m.Train([]*mrt.Snapshot{
		snapshotAt(t, 12, mustProfile(t, "64502", "NL", 4, 6, nil, nil, nil)),
		snapshotAt(t, 14, mustProfile(t, "64502", "NL", 4, 6, nil, nil, nil)),
	})
	return m
}

func TestPredict_StableAS(t *testing.T) {
	m := trainedMachine(t)
	report := m.Predict(snapshotAt(t, 16,
		mustProfile(t, "64502", "NL", 4, 6, nil, nil, nil)))

	prediction := report.Predictions["64502"]
	require.NotNil(t, prediction)
	assert.False(t, prediction.NoData)
	assert.Equal(t, 0, prediction.Total)
	for property, p := range prediction.Properties {
		assert.Equal(t, 0, p.WarningLevel, "property %s", property)
		assert.Equal(t, BehaviourStable, p.Behaviour, "property %s", property)
	}
}

func TestPredict_RangeViolation(t *testing.T) {
	m := trainedMachine(t)
	report := m.Predict(snapshotAt(t, 16,
		mustProfile(t, "64502", "NL", 20, 30, nil, nil, nil)))

	prediction := report.Predictions["64502"]
	require.NotNil(t, prediction)

	// mid, end and times_seen each moved outside their collapsed range
	assert.Equal(t, 1, prediction.Properties[models.PropMidPathCount].WarningLevel)
	assert.Equal(t, 1, prediction.Properties[models.PropEndPathCount].WarningLevel)
	assert.Equal(t, 1, prediction.Properties[models.PropTimesSeen].WarningLevel)
	assert.Equal(t, 0, prediction.Properties[models.PropLocation].WarningLevel)
	assert.Equal(t, 3, prediction.Total)
}

func TestPredict_LocationMismatch(t *testing.T) {
	m := trainedMachine(t)
	report := m.Predict(snapshotAt(t, 16,
		mustProfile(t, "64502", "BR", 4, 6, nil, nil, nil)))

	prediction := report.Predictions["64502"]
	require.NotNil(t, prediction)
	assert.Equal(t, m.Config.LocationWeight, prediction.Properties[models.PropLocation].WarningLevel)
	assert.Equal(t, m.Config.LocationWeight, prediction.Total)
}

func TestPredict_UnknownAS(t *testing.T) {
	m := trainedMachine(t)
	report := m.Predict(snapshotAt(t, 16,
		mustProfile(t, "65000", "US", 1, 1, nil, nil, nil)))

	prediction := report.Predictions["65000"]
	require.NotNil(t, prediction)
	assert.True(t, prediction.NoData)
	assert.Equal(t, 0, prediction.Total)
	assert.Empty(t, prediction.Properties)
}

func TestScoreValue_WeightsStack(t *testing.T) {
	m := New(DefaultConfig())
	stats := Stats{Min: 0, Max: 10, Mean: 5, StdDev: 1, Slope: 0}

	p := m.scoreValue(20, stats)
	// outside the range and far in the upper tail
	assert.Equal(t, m.Config.RangeWeight+m.Config.TailWeight, p.WarningLevel)

	p = m.scoreValue(5, stats)
	assert.Equal(t, 0, p.WarningLevel)

	// inside the range but in the tail of the fitted normal
	p = m.scoreValue(9, stats)
	assert.Equal(t, m.Config.TailWeight, p.WarningLevel)
}

func TestScoreValue_Trend(t *testing.T) {
	m := New(DefaultConfig())

	p := m.scoreValue(5, Stats{Min: 0, Max: 10, Mean: 5, StdDev: 1, Slope: 0.5})
	assert.Equal(t, BehaviourRising, p.Behaviour)

	p = m.scoreValue(5, Stats{Min: 0, Max: 10, Mean: 5, StdDev: 1, Slope: -0.5})
	assert.Equal(t, BehaviourFalling, p.Behaviour)

	p = m.scoreValue(5, Stats{Min: 0, Max: 10, Mean: 5, StdDev: 1, Slope: 0.05})
	assert.Equal(t, BehaviourStable, p.Behaviour)
}

func TestScoreValue_NoData(t *testing.T) {
	m := New(DefaultConfig())
	p := m.scoreValue(42, noData)
	assert.Equal(t, 0, p.WarningLevel)
	assert.Equal(t, BehaviourStable, p.Behaviour)
}

func TestPredictedProperties_Order(t *testing.T) {
	properties := predictedProperties()
	require.NotEmpty(t, properties)
	assert.Equal(t, models.PropLocation, properties[0])
	assert.Len(t, properties, len(models.NumericProperties)+1)
}
