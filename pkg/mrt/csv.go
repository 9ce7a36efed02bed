package mrt

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
)

var csvHeader = []string{
	"as_id",
	"location",
	"mid_path_count",
	"end_path_count",
	"path_sizes",
	"announced_prefixes",
	"neighbours",
}

// ExportCSV writes the snapshot's AS data to <destDir>/<stem>.csv and returns
// the written path. path_sizes is a JSON-encoded object; prefix and neighbour
// sets are ";"-joined, with the empty string meaning the empty set.
func (s *Snapshot) ExportCSV(destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(destDir, s.stem()+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write snapshot CSV: %w", err)
	}

	ids := make([]string, 0, len(s.ASMap))
	for id := range s.ASMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		profile := s.ASMap[id]
		sizes, err := encodePathSizes(profile.PathSizes)
		if err != nil {
			return "", fmt.Errorf("encode path sizes for AS %s: %w", id, err)
		}
		record := []string{
			id,
			profile.Location,
			strconv.Itoa(profile.MidPathCount),
			strconv.Itoa(profile.EndPathCount),
			sizes,
			strings.Join(profile.PrefixList(), ";"),
			strings.Join(profile.NeighbourList(), ";"),
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("write snapshot CSV: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("write snapshot CSV: %w", err)
	}

	logging.L().Info("exported snapshot to CSV", zap.String("path", path))
	return path, nil
}

// ImportCSVFile reads a previously exported snapshot CSV file back into an
// AS map.
func ImportCSVFile(path string) (map[string]*models.Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read snapshot CSV header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected snapshot CSV header: %v", header)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot CSV: %w", err)
	}

	asMap := make(map[string]*models.Profile, len(records))
	for _, record := range records {
		profile, err := importCSVRecord(record)
		if err != nil {
			return nil, err
		}
		asMap[profile.ID] = profile
	}

	logging.L().Info("imported snapshot from CSV",
		zap.String("path", path), zap.Int("as_total", len(asMap)))
	return asMap, nil
}

func importCSVRecord(record []string) (*models.Profile, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("malformed snapshot CSV record: %v", record)
	}
	id := record[0]

	mid, err := strconv.Atoi(record[2])
	if err != nil {
		return nil, fmt.Errorf("AS %s: bad mid_path_count %q", id, record[2])
	}
	end, err := strconv.Atoi(record[3])
	if err != nil {
		return nil, fmt.Errorf("AS %s: bad end_path_count %q", id, record[3])
	}
	sizes, err := decodePathSizes(record[4])
	if err != nil {
		return nil, fmt.Errorf("AS %s: bad path_sizes %q: %w", id, record[4], err)
	}

	return models.NewProfile(id, record[1], mid, end, sizes,
		splitSet(record[5]), splitSet(record[6]))
}

func encodePathSizes(sizes map[int]int) (string, error) {
	if len(sizes) == 0 {
		return "", nil
	}
	byKey := make(map[string]int, len(sizes))
	for size, count := range sizes {
		byKey[strconv.Itoa(size)] = count
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodePathSizes(raw string) (map[int]int, error) {
	if raw == "" {
		return nil, nil
	}
	var byKey map[string]int
	if err := json.Unmarshal([]byte(raw), &byKey); err != nil {
		return nil, err
	}
	sizes := make(map[int]int, len(byKey))
	for key, count := range byKey {
		size, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("non-integer path length %q", key)
		}
		sizes[size] = count
	}
	return sizes, nil
}

func splitSet(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ";")
}
