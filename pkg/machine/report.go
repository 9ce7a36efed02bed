package machine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
)

// Report holds the per-AS, per-property predictions for one scored snapshot.
type Report struct {
	SnapshotFile string                   `json:"snapshot_file"`
	SnapshotTime time.Time                `json:"snapshot_time"`
	Predictions  map[string]*ASPrediction `json:"predictions"`
}

var reportCSVHeader = []string{"AS_ID", "Property", "Warning_Level", "Behaviour"}

// WriteCSV writes the report as one row per AS property. An AS without
// training history yields a single row with empty property columns.
func (r *Report) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create prediction CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(reportCSVHeader); err != nil {
		return fmt.Errorf("write prediction CSV: %w", err)
	}

	properties := predictedProperties()
	for _, id := range sortedASIDs(r.Predictions) {
		prediction := r.Predictions[id]
		if prediction.NoData {
			if err := writer.Write([]string{id, "", "", ""}); err != nil {
				return fmt.Errorf("write prediction CSV: %w", err)
			}
			continue
		}
		for _, property := range properties {
			p := prediction.Properties[property]
			record := []string{
				id,
				property,
				strconv.Itoa(p.WarningLevel),
				strconv.Itoa(p.Behaviour),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write prediction CSV: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write prediction CSV: %w", err)
	}

	logging.L().Info("predictions saved", zap.String("path", path))
	return nil
}

// WriteJSON writes the report as a single JSON document.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("encode prediction JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prediction JSON: %w", err)
	}

	logging.L().Info("predictions saved", zap.String("path", path))
	return nil
}
