package machine

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *Report {
	return &Report{
		SnapshotFile: "rib.20131101.1200.bz2",
		SnapshotTime: time.Date(2013, 11, 1, 12, 0, 0, 0, time.UTC),
		Predictions: map[string]*ASPrediction{
			"64502": {
				Properties: map[string]PropertyPrediction{
					"location":   {WarningLevel: 2},
					"times_seen": {WarningLevel: 1, Behaviour: BehaviourRising},
				},
				Total: 3,
			},
			"65000": {NoData: true},
		},
	}
}

func TestReportWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, testReport().WriteCSV(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, reportCSVHeader, records[0])
	// 64502 sorts before 65000 and gets one row per scored property
	assert.Equal(t, "64502", records[1][0])
	assert.Equal(t, "location", records[1][1])
	assert.Equal(t, "2", records[1][2])

	last := records[len(records)-1]
	assert.Equal(t, []string{"65000", "", "", ""}, last)

	// one row per property plus the no-data row and the header
	assert.Len(t, records, len(predictedProperties())+2)
}

func TestReportWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, testReport().WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "rib.20131101.1200.bz2", decoded.SnapshotFile)
	require.Contains(t, decoded.Predictions, "64502")
	assert.Equal(t, 3, decoded.Predictions["64502"].Total)
	assert.True(t, decoded.Predictions["65000"].NoData)
}
