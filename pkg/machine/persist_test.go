package machine

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

func TestMachineGobRoundTrip(t *testing.T) {
	m := New(DefaultConfig())
	m.Train([]*mrt.Snapshot{
		snapshotAt(t, 12, mustProfile(t, "64502", "NL", 4, 6, map[int]int{2: 1},
			[]string{"198.51.100.0/24"}, []string{"64500"})),
		snapshotAt(t, 14, mustProfile(t, "64502", "NL", 5, 7, map[int]int{3: 1},
			[]string{"203.0.113.0/24"}, []string{"64500"})),
	})

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	restored, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, m.Config, restored.Config)
	require.Len(t, restored.Dataset, 2)
	assert.True(t, restored.Dataset[0].Equal(m.Dataset[0]))

	baseline := restored.TrainData["64502"]
	require.NotNil(t, baseline)
	assert.Equal(t, m.TrainData["64502"].Stats, baseline.Stats)
	assert.Equal(t, m.TrainData["64502"].AnnouncedPrefixes, baseline.AnnouncedPrefixes)
	assert.Equal(t, m.TrainData["64502"].Neighbours, baseline.Neighbours)

	profile := restored.Dataset[0].ASMap["64502"]
	require.NotNil(t, profile)
	assert.Equal(t, []string{"198.51.100.0/24"}, profile.PrefixList())
}

func TestMachineSaveLoad(t *testing.T) {
	m := trainedMachine(t)
	path := filepath.Join(t.TempDir(), "model.gob")

	require.NoError(t, m.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, restored.TrainData, "64502")

	// the restored machine predicts like the original
	report := restored.Predict(snapshotAt(t, 16,
		mustProfile(t, "64502", "BR", 4, 6, nil, nil, nil)))
	assert.Equal(t, restored.Config.LocationWeight, report.Predictions["64502"].Total)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.gob"))
	assert.Error(t, err)
}

func TestDecode_EmptyMachine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(DefaultConfig()).Encode(&buf))

	restored, err := Decode(&buf)
	require.NoError(t, err)
	assert.NotNil(t, restored.TrainData)
	assert.Empty(t, restored.Dataset)
}

func TestPersistRejectsCorruptProfile(t *testing.T) {
	// a profile with a non-numeric ID cannot exist in memory, so a gob image
	// carrying one is corrupt and must be rejected
	image := machineGob{
		Snapshots: []snapshotGob{{Profiles: []profileGob{{ID: "not-an-asn"}}}},
	}
	_, err := fromImage(image)
	require.Error(t, err)
	var invalid *models.InvalidIdentifierError
	assert.ErrorAs(t, err, &invalid)
}
