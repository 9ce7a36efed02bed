// Package mrt converts archived BGP table dumps into per-AS profiles.
//
// A snapshot can be built from a raw table-dump-v2 file (.bz2) or from a
// previously exported .json/.csv representation; all three paths produce the
// same AS-ID to profile mapping.
package mrt

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hervehildenbrand/bgp-baseline/pkg/location"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
)

// UnsupportedFormatError reports a file extension no importer recognizes.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %q", e.Ext)
}

// Snapshot binds one point-in-time AS map to its source file. Snapshots are
// immutable after construction; equality and ordering are defined solely by
// the timestamp parsed from the file name.
type Snapshot struct {
	FilePath  string
	Timestamp time.Time
	ASMap     map[string]*models.Profile
}

// Options controls snapshot construction.
type Options struct {
	// Resolver supplies AS-to-country lookups during binary parsing.
	// Nil means every AS gets models.UnknownLocation.
	Resolver location.Resolver
	// MessageLimit truncates binary parsing after that many MRT records.
	// Zero means no limit.
	MessageLimit int
}

// LoadSnapshot builds a snapshot from path, choosing the importer by file
// extension: .bz2 (raw table dump), .json or .csv (previously exported).
// The snapshot timestamp is parsed from the file name
// (<prefix>.<YYYYMMDD>.<HHMM>.<ext>).
func LoadSnapshot(path string, opts Options) (*Snapshot, error) {
	timestamp, err := TimestampFromFilename(path)
	if err != nil {
		return nil, err
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = location.NewNullResolver()
	}

	var asMap map[string]*models.Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".bz2":
		asMap, err = NewParser(resolver).ImportBZ2(path, opts.MessageLimit)
	case ".json":
		asMap, err = ImportJSONFile(path)
	case ".csv":
		asMap, err = ImportCSVFile(path)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		FilePath:  path,
		Timestamp: timestamp,
		ASMap:     asMap,
	}, nil
}

// TimestampFromFilename extracts the snapshot time embedded in a dump file
// name of the form <prefix>.<YYYYMMDD>.<HHMM>.<ext> (e.g. rib.20131101.1200.bz2).
func TimestampFromFilename(path string) (time.Time, error) {
	stem := filepath.Base(path)
	if ext := filepath.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}
	parts := strings.Split(stem, ".")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("cannot extract timestamp from file name %q", filepath.Base(path))
	}
	timestamp, err := time.Parse("200601021504", parts[1]+parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot extract timestamp from file name %q: %w", filepath.Base(path), err)
	}
	return timestamp, nil
}

// Equal reports whether two snapshots were taken at the same moment,
// regardless of source file.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if other == nil {
		return false
	}
	return s.Timestamp.Equal(other.Timestamp)
}

// Before reports whether s was taken before other.
func (s *Snapshot) Before(other *Snapshot) bool {
	return s.Timestamp.Before(other.Timestamp)
}

func (s *Snapshot) String() string {
	return filepath.Base(s.FilePath)
}

// stem returns the snapshot file name without directory or extension, used to
// name exported files.
func (s *Snapshot) stem() string {
	base := filepath.Base(s.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
