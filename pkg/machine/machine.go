// Package machine learns per-AS statistical baselines from historical
// snapshots and scores new snapshots against them.
package machine

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

// Config holds the anomaly-scoring constants. They are deliberately
// configuration, not hidden literals.
type Config struct {
	// TrendThreshold is the absolute slope above which a property's
	// historical trend counts as rising or falling.
	TrendThreshold float64
	// RangeWeight is added when a value falls outside the robust range.
	RangeWeight int
	// TailWeight is added when the normal-CDF probability of the value
	// lands in a distribution tail.
	TailWeight int
	// LocationWeight is added on a country-code mismatch.
	LocationWeight int
	// TailLow and TailHigh bound the acceptable probability band.
	TailLow, TailHigh float64
}

// DefaultConfig returns the scoring constants used in production.
func DefaultConfig() Config {
	return Config{
		TrendThreshold: 0.1,
		RangeWeight:    1,
		TailWeight:     2,
		LocationWeight: 2,
		TailLow:        0.05,
		TailHigh:       0.95,
	}
}

// Stats is one property's baseline: a Tukey-fenced robust range, moments and
// a least-squares trend slope over the historical sequence, plus the mode for
// the categorical location property. The all -1 sentinel means no data.
type Stats struct {
	Min      float64
	Max      float64
	Mean     float64
	StdDev   float64
	Skewness float64
	Slope    float64
	Mode     string
}

// noData marks a property with no historical observations.
var noData = Stats{Min: -1, Max: -1, Mean: -1, StdDev: -1, Skewness: -1, Slope: -1}

// NoData reports whether the baseline carries the no-data sentinel.
func (s Stats) NoData() bool {
	return s.Min == -1 && s.Max == -1 && s.Mean == -1 && s.StdDev == -1
}

// Baseline aggregates one AS's training history.
type Baseline struct {
	// Stats maps property name to its baseline tuple.
	Stats map[string]Stats
	// AnnouncedPrefixes and Neighbours are the unions ever observed.
	AnnouncedPrefixes map[string]struct{}
	Neighbours        map[string]struct{}
}

// Machine trains on snapshot history and predicts anomalies. Train rebuilds
// TrainData from scratch; callers must not run Train concurrently with Predict
// or with itself on the same instance.
type Machine struct {
	Config Config
	// Dataset is the training set, ordered by timestamp.
	Dataset []*mrt.Snapshot
	// TrainData maps AS ID to its learned baseline.
	TrainData map[string]*Baseline
}

// New creates a machine with the given scoring configuration.
func New(cfg Config) *Machine {
	return &Machine{
		Config:    cfg,
		TrainData: make(map[string]*Baseline),
	}
}

// asHistory accumulates one AS's ordered per-property value sequences while
// walking the training set.
type asHistory struct {
	numeric    map[string][]float64
	locations  []string
	pathSizes  []float64 // pooled individual path-length observations
	prefixes   map[string]struct{}
	neighbours map[string]struct{}
}

// Train replaces the dataset with the given snapshots (duplicates by
// timestamp collapse, order is by timestamp) and rebuilds every AS baseline
// from scratch.
func (m *Machine) Train(snapshots []*mrt.Snapshot) {
	m.Dataset = dedupeSorted(snapshots)
	m.TrainData = make(map[string]*Baseline)

	logging.L().Info("starting training", zap.Int("snapshots", len(m.Dataset)))

	history := make(map[string]*asHistory)
	for _, snapshot := range m.Dataset {
		for id, profile := range snapshot.ASMap {
			h, ok := history[id]
			if !ok {
				h = &asHistory{
					numeric:    make(map[string][]float64, len(models.NumericProperties)),
					prefixes:   make(map[string]struct{}),
					neighbours: make(map[string]struct{}),
				}
				history[id] = h
			}
			for _, property := range models.NumericProperties {
				h.numeric[property.Name] = append(h.numeric[property.Name], property.Value(profile))
			}
			h.locations = append(h.locations, profile.Location)
			for size, count := range profile.PathSizes {
				for i := 0; i < count; i++ {
					h.pathSizes = append(h.pathSizes, float64(size))
				}
			}
			for prefix := range profile.AnnouncedPrefixes {
				h.prefixes[prefix] = struct{}{}
			}
			for neighbour := range profile.Neighbours {
				h.neighbours[neighbour] = struct{}{}
			}
		}
	}

	for id, h := range history {
		baseline := &Baseline{
			Stats:             make(map[string]Stats, len(models.NumericProperties)+2),
			AnnouncedPrefixes: h.prefixes,
			Neighbours:        h.neighbours,
		}
		for _, property := range models.NumericProperties {
			baseline.Stats[property.Name] = computeStats(h.numeric[property.Name])
		}
		locationStats := noData
		locationStats.Mode = mode(h.locations)
		baseline.Stats[models.PropLocation] = locationStats
		if len(h.pathSizes) > 0 {
			baseline.Stats[models.PropPathSizes] = computeStats(h.pathSizes)
		} else {
			baseline.Stats[models.PropPathSizes] = noData
		}
		m.TrainData[id] = baseline
	}

	logging.L().Info("finished training", zap.Int("as_total", len(m.TrainData)))
}

// dedupeSorted collapses snapshots sharing a timestamp (first one wins) and
// sorts the rest chronologically.
func dedupeSorted(snapshots []*mrt.Snapshot) []*mrt.Snapshot {
	seen := make(map[int64]bool, len(snapshots))
	unique := make([]*mrt.Snapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		key := snapshot.Timestamp.Unix()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, snapshot)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })
	return unique
}

// computeStats derives the baseline tuple from a historical value sequence.
// The robust range is the Tukey fence clipped to the observed extremes;
// skewness and slope degrade to 0 on a constant sequence.
func computeStats(values []float64) Stats {
	if len(values) == 0 {
		return noData
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1

	s := Stats{
		Min:  math.Max(sorted[0], q1-1.5*iqr),
		Max:  math.Min(sorted[len(sorted)-1], q3+1.5*iqr),
		Mean: stat.Mean(values, nil),
	}
	s.StdDev = popStdDev(values, s.Mean)
	if s.StdDev > 0 {
		if len(values) >= 3 {
			s.Skewness = stat.Skew(values, nil)
		}
		indexes := make([]float64, len(values))
		for i := range indexes {
			indexes[i] = float64(i)
		}
		_, s.Slope = stat.LinearRegression(indexes, values, nil, false)
	}
	return s
}

// popStdDev is the population standard deviation (ddof=0), so a single
// observation yields 0 rather than an undefined sample estimate. gonum's
// stat.StdDev is the sample estimator.
func popStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// mode returns the most frequent value, ties broken by earliest occurrence.
func mode(values []string) string {
	if len(values) == 0 {
		return ""
	}
	counts := make(map[string]int, len(values))
	first := make(map[string]int, len(values))
	for i, v := range values {
		if _, ok := counts[v]; !ok {
			first[v] = i
		}
		counts[v]++
	}
	best := values[0]
	for v, c := range counts {
		if c > counts[best] || (c == counts[best] && first[v] < first[best]) {
			best = v
		}
	}
	return best
}
