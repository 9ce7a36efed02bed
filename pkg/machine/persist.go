package machine

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
	"github.com/hervehildenbrand/bgp-baseline/pkg/mrt"
)

// The gob image flattens the prefix and neighbour sets to slices; gob cannot
// encode the struct{}-valued set maps used in memory.
type machineGob struct {
	Config    Config
	Snapshots []snapshotGob
	Baselines map[string]baselineGob
}

type snapshotGob struct {
	FilePath  string
	Timestamp time.Time
	Profiles  []profileGob
}

type profileGob struct {
	ID           string
	Location     string
	MidPathCount int
	EndPathCount int
	PathSizes    map[int]int
	Prefixes     []string
	Neighbours   []string
}

type baselineGob struct {
	Stats      map[string]Stats
	Prefixes   []string
	Neighbours []string
}

func (m *Machine) image() machineGob {
	image := machineGob{
		Config:    m.Config,
		Snapshots: make([]snapshotGob, 0, len(m.Dataset)),
		Baselines: make(map[string]baselineGob, len(m.TrainData)),
	}
	for _, snapshot := range m.Dataset {
		sg := snapshotGob{
			FilePath:  snapshot.FilePath,
			Timestamp: snapshot.Timestamp,
			Profiles:  make([]profileGob, 0, len(snapshot.ASMap)),
		}
		for _, profile := range snapshot.ASMap {
			sg.Profiles = append(sg.Profiles, profileGob{
				ID:           profile.ID,
				Location:     profile.Location,
				MidPathCount: profile.MidPathCount,
				EndPathCount: profile.EndPathCount,
				PathSizes:    profile.PathSizes,
				Prefixes:     profile.PrefixList(),
				Neighbours:   profile.NeighbourList(),
			})
		}
		image.Snapshots = append(image.Snapshots, sg)
	}
	for id, baseline := range m.TrainData {
		image.Baselines[id] = baselineGob{
			Stats:      baseline.Stats,
			Prefixes:   setSlice(baseline.AnnouncedPrefixes),
			Neighbours: setSlice(baseline.Neighbours),
		}
	}
	return image
}

func fromImage(image machineGob) (*Machine, error) {
	m := &Machine{
		Config:    image.Config,
		Dataset:   make([]*mrt.Snapshot, 0, len(image.Snapshots)),
		TrainData: make(map[string]*Baseline, len(image.Baselines)),
	}
	for _, sg := range image.Snapshots {
		asMap := make(map[string]*models.Profile, len(sg.Profiles))
		for _, pg := range sg.Profiles {
			profile, err := models.NewProfile(pg.ID, pg.Location,
				pg.MidPathCount, pg.EndPathCount, pg.PathSizes, pg.Prefixes, pg.Neighbours)
			if err != nil {
				return nil, fmt.Errorf("decode machine: AS %q: %w", pg.ID, err)
			}
			asMap[profile.ID] = profile
		}
		m.Dataset = append(m.Dataset, &mrt.Snapshot{
			FilePath:  sg.FilePath,
			Timestamp: sg.Timestamp,
			ASMap:     asMap,
		})
	}
	for id, bg := range image.Baselines {
		m.TrainData[id] = &Baseline{
			Stats:             bg.Stats,
			AnnouncedPrefixes: sliceSet(bg.Prefixes),
			Neighbours:        sliceSet(bg.Neighbours),
		}
	}
	return m, nil
}

func setSlice(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}

func sliceSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// Encode serializes the trained machine (configuration, dataset and
// baselines) to w.
func (m *Machine) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m.image()); err != nil {
		return fmt.Errorf("encode machine: %w", err)
	}
	return nil
}

// Decode deserializes a machine previously written by Encode.
func Decode(r io.Reader) (*Machine, error) {
	var image machineGob
	if err := gob.NewDecoder(r).Decode(&image); err != nil {
		return nil, fmt.Errorf("decode machine: %w", err)
	}
	return fromImage(image)
}

// Save writes the trained machine to a file for reuse without retraining.
func (m *Machine) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create machine file: %w", err)
	}
	defer file.Close()

	if err := m.Encode(file); err != nil {
		return err
	}

	logging.L().Info("machine saved", zap.String("path", path))
	return nil
}

// Load reads a machine previously written by Save.
func Load(path string) (*Machine, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open machine file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}
