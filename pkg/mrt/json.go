package mrt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
)

// snapshotTimeLayout is the human-readable timestamp in exported JSON.
const snapshotTimeLayout = "02/01/2006 15:04"

type snapshotJSON struct {
	SnapshotTime string    `json:"snapshot_time"`
	AS           asSection `json:"as"`
}

type asSection struct {
	ASTotal int                 `json:"as_total"`
	ASInfo  map[string]asExport `json:"as_info"`
}

type asExport struct {
	Location  string          `json:"location"`
	TimesSeen int             `json:"times_seen"`
	Path      pathExport      `json:"path"`
	Prefix    prefixExport    `json:"prefix"`
	Neighbour neighbourExport `json:"neighbour"`
}

type pathExport struct {
	MidPathCount int      `json:"mid_path_count"`
	EndPathCount int      `json:"end_path_count"`
	MeanPathSize float64  `json:"mean_path_size"`
	PathSizes    [][2]int `json:"path_sizes"`
}

type prefixExport struct {
	TotalPrefixes     int      `json:"total_prefixes"`
	IPv4Count         int      `json:"ipv4_count"`
	IPv6Count         int      `json:"ipv6_count"`
	AnnouncedPrefixes []string `json:"announced_prefixes"`
}

type neighbourExport struct {
	TotalNeighbours int      `json:"total_neighbours"`
	Neighbours      []string `json:"neighbours"`
}

func exportProfile(p *models.Profile) asExport {
	sizes := make([][2]int, 0, len(p.PathSizes))
	for size, count := range p.PathSizes {
		sizes = append(sizes, [2]int{size, count})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i][0] < sizes[j][0] })

	return asExport{
		Location:  p.Location,
		TimesSeen: p.TimesSeen(),
		Path: pathExport{
			MidPathCount: p.MidPathCount,
			EndPathCount: p.EndPathCount,
			MeanPathSize: p.MeanPathSize(),
			PathSizes:    sizes,
		},
		Prefix: prefixExport{
			TotalPrefixes:     p.TotalPrefixes(),
			IPv4Count:         p.IPv4Count(),
			IPv6Count:         p.IPv6Count(),
			AnnouncedPrefixes: p.PrefixList(),
		},
		Neighbour: neighbourExport{
			TotalNeighbours: p.TotalNeighbours(),
			Neighbours:      p.NeighbourList(),
		},
	}
}

func importProfile(id string, export asExport) (*models.Profile, error) {
	sizes := make(map[int]int, len(export.Path.PathSizes))
	for _, pair := range export.Path.PathSizes {
		sizes[pair[0]] += pair[1]
	}
	return models.NewProfile(id, export.Location,
		export.Path.MidPathCount, export.Path.EndPathCount,
		sizes, export.Prefix.AnnouncedPrefixes, export.Neighbour.Neighbours)
}

// ExportJSON writes the snapshot's AS data to <destDir>/<stem>.json and
// returns the written path.
func (s *Snapshot) ExportJSON(destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	info := make(map[string]asExport, len(s.ASMap))
	for id, profile := range s.ASMap {
		info[id] = exportProfile(profile)
	}
	payload := snapshotJSON{
		SnapshotTime: s.Timestamp.Format(snapshotTimeLayout),
		AS: asSection{
			ASTotal: len(s.ASMap),
			ASInfo:  info,
		},
	}

	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot JSON: %w", err)
	}
	path := filepath.Join(destDir, s.stem()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot JSON: %w", err)
	}

	logging.L().Info("exported snapshot to JSON", zap.String("path", path))
	return path, nil
}

// ImportJSONFile reads a previously exported snapshot JSON file back into an
// AS map. The embedded snapshot_time is informational; the authoritative
// timestamp comes from the file name.
func ImportJSONFile(path string) (map[string]*models.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot JSON: %w", err)
	}
	var payload snapshotJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot JSON: %w", err)
	}

	asMap := make(map[string]*models.Profile, len(payload.AS.ASInfo))
	for id, export := range payload.AS.ASInfo {
		profile, err := importProfile(id, export)
		if err != nil {
			return nil, fmt.Errorf("import AS %q: %w", id, err)
		}
		asMap[profile.ID] = profile
	}

	logging.L().Info("imported snapshot from JSON",
		zap.String("path", path), zap.Int("as_total", len(asMap)))
	return asMap, nil
}
