package machine

import (
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

// Behaviour classifications for a property's historical trend.
const (
	BehaviourFalling = -1
	BehaviourStable  = 0
	BehaviourRising  = 1
)

// PropertyPrediction scores one AS property against its baseline.
type PropertyPrediction struct {
	// WarningLevel accumulates additive anomaly weights: range violation,
	// tail probability and categorical mismatch stack.
	WarningLevel int `json:"warning_level"`
	// Behaviour classifies the historical trend slope.
	Behaviour int `json:"behaviour"`
}

// ASPrediction is the scoring outcome for one AS in the predicted snapshot.
// NoData marks an AS without training history; it is a result, not an error.
type ASPrediction struct {
	NoData     bool                          `json:"no_data,omitempty"`
	Properties map[string]PropertyPrediction `json:"properties,omitempty"`
	// Total is the warning level summed across all properties.
	Total int `json:"total_warning_level"`
}

// predictedProperties is the ordered list of properties scored by Predict:
// the categorical location plus every scalar property. The path-size multiset
// and the raw prefix/neighbour sets are not scored directly.
func predictedProperties() []string {
	names := make([]string, 0, len(models.NumericProperties)+1)
	names = append(names, models.PropLocation)
	for _, property := range models.NumericProperties {
		names = append(names, property.Name)
	}
	return names
}

// Predict scores every AS in the snapshot against the trained baselines.
func (m *Machine) Predict(snapshot *mrt.Snapshot) *Report {
	logging.L().Info("starting prediction", zap.String("snapshot", snapshot.String()))

	report := &Report{
		SnapshotFile: snapshot.FilePath,
		SnapshotTime: snapshot.Timestamp,
		Predictions:  make(map[string]*ASPrediction, len(snapshot.ASMap)),
	}

	for id, profile := range snapshot.ASMap {
		baseline, ok := m.TrainData[id]
		if !ok {
			report.Predictions[id] = &ASPrediction{NoData: true}
			continue
		}
		report.Predictions[id] = m.predictAS(profile, baseline)
	}

	logging.L().Info("finished prediction",
		zap.Int("as_total", len(report.Predictions)))
	return report
}

func (m *Machine) predictAS(profile *models.Profile, baseline *Baseline) *ASPrediction {
	prediction := &ASPrediction{
		Properties: make(map[string]PropertyPrediction, len(models.NumericProperties)+1),
	}

	locationStats := baseline.Stats[models.PropLocation]
	locationPrediction := PropertyPrediction{}
	if profile.Location != locationStats.Mode {
		locationPrediction.WarningLevel += m.Config.LocationWeight
	}
	prediction.Properties[models.PropLocation] = locationPrediction
	prediction.Total += locationPrediction.WarningLevel

	for _, property := range models.NumericProperties {
		stats := baseline.Stats[property.Name]
		propertyPrediction := m.scoreValue(property.Value(profile), stats)
		prediction.Properties[property.Name] = propertyPrediction
		prediction.Total += propertyPrediction.WarningLevel
	}
	return prediction
}

// scoreValue applies the range fence, the tail-probability check and the
// trend classification to one observed value.
func (m *Machine) scoreValue(value float64, stats Stats) PropertyPrediction {
	p := PropertyPrediction{}
	if stats.NoData() {
		return p
	}

	if value < stats.Min || value > stats.Max {
		p.WarningLevel += m.Config.RangeWeight
	}

	if stats.StdDev > 0 {
		z := (value - stats.Mean) / stats.StdDev
		probability := distuv.UnitNormal.CDF(z)
		if probability < m.Config.TailLow || probability > m.Config.TailHigh {
			p.WarningLevel += m.Config.TailWeight
		}
	}

	switch {
	case stats.Slope > m.Config.TrendThreshold:
		p.Behaviour = BehaviourRising
	case stats.Slope < -m.Config.TrendThreshold:
		p.Behaviour = BehaviourFalling
	default:
		p.Behaviour = BehaviourStable
	}
	return p
}

// sortedASIDs returns the report's AS IDs in deterministic order.
func sortedASIDs(predictions map[string]*ASPrediction) []string {
	ids := make([]string, 0, len(predictions))
	for id := range predictions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
