// Package models defines the per-snapshot AS profile value object.
package models

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// UnknownLocation is the country code used when no resolver knows the AS.
const UnknownLocation = "ZZ"

// Profile describes one Autonomous System's observed behavior within a single
// snapshot. Treat it as immutable after construction: parsers build profiles
// once per AS per snapshot and replace rather than mutate them.
type Profile struct {
	// ID is the AS number as a canonical decimal string.
	ID string
	// Location is a two-letter country code, or "ZZ" if unknown.
	Location string
	// MidPathCount counts appearances in the interior of an observed path.
	MidPathCount int
	// EndPathCount counts appearances at an endpoint (origin or first hop).
	EndPathCount int
	// PathSizes maps path length to occurrence count, recorded only for
	// paths this AS originates.
	PathSizes map[int]int
	// AnnouncedPrefixes holds the CIDR prefixes originated by this AS.
	AnnouncedPrefixes map[string]struct{}
	// Neighbours holds the AS IDs adjacent to this AS in at least one path.
	Neighbours map[string]struct{}
}

// CanonicalID normalizes an AS identifier to its decimal string form.
// It returns an InvalidIdentifierError if id is not integer-parseable.
func CanonicalID(id string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return "", &InvalidIdentifierError{ID: id}
	}
	return strconv.Itoa(n), nil
}

// NewProfile constructs a Profile, validating and canonicalizing the AS
// identifier. The maps and slices are copied; callers keep ownership of their
// arguments.
func NewProfile(id, location string, mid, end int, pathSizes map[int]int, prefixes, neighbours []string) (*Profile, error) {
	canonical, err := CanonicalID(id)
	if err != nil {
		return nil, err
	}
	if location == "" {
		location = UnknownLocation
	}

	p := &Profile{
		ID:                canonical,
		Location:          location,
		MidPathCount:      mid,
		EndPathCount:      end,
		PathSizes:         make(map[int]int, len(pathSizes)),
		AnnouncedPrefixes: make(map[string]struct{}, len(prefixes)),
		Neighbours:        make(map[string]struct{}, len(neighbours)),
	}
	for size, count := range pathSizes {
		p.PathSizes[size] = count
	}
	for _, prefix := range prefixes {
		p.AnnouncedPrefixes[prefix] = struct{}{}
	}
	for _, neighbour := range neighbours {
		p.Neighbours[neighbour] = struct{}{}
	}
	return p, nil
}

// Equal reports whether two profiles describe the same Autonomous System.
// Identity is the AS number, not the observed content.
func (p *Profile) Equal(other *Profile) bool {
	if other == nil {
		return false
	}
	return p.ID == other.ID
}

// Merge combines two profiles for the same AS into a new one: counts are
// summed, path-size multisets added, prefix and neighbour sets unioned.
// Merging profiles with different identifiers fails with a
// MismatchedIdentifierError.
func (p *Profile) Merge(other *Profile) (*Profile, error) {
	if p.ID != other.ID {
		return nil, &MismatchedIdentifierError{A: p.ID, B: other.ID}
	}

	merged := &Profile{
		ID:                p.ID,
		Location:          p.Location,
		MidPathCount:      p.MidPathCount + other.MidPathCount,
		EndPathCount:      p.EndPathCount + other.EndPathCount,
		PathSizes:         make(map[int]int, len(p.PathSizes)+len(other.PathSizes)),
		AnnouncedPrefixes: make(map[string]struct{}, len(p.AnnouncedPrefixes)+len(other.AnnouncedPrefixes)),
		Neighbours:        make(map[string]struct{}, len(p.Neighbours)+len(other.Neighbours)),
	}
	for size, count := range p.PathSizes {
		merged.PathSizes[size] += count
	}
	for size, count := range other.PathSizes {
		merged.PathSizes[size] += count
	}
	for prefix := range p.AnnouncedPrefixes {
		merged.AnnouncedPrefixes[prefix] = struct{}{}
	}
	for prefix := range other.AnnouncedPrefixes {
		merged.AnnouncedPrefixes[prefix] = struct{}{}
	}
	for neighbour := range p.Neighbours {
		merged.Neighbours[neighbour] = struct{}{}
	}
	for neighbour := range other.Neighbours {
		merged.Neighbours[neighbour] = struct{}{}
	}
	return merged, nil
}

// TimesSeen is the total number of path appearances.
func (p *Profile) TimesSeen() int {
	return p.MidPathCount + p.EndPathCount
}

// MeanPathSize is the weighted average of the originated path lengths,
// or 0 if this AS originated nothing.
func (p *Profile) MeanPathSize() float64 {
	var total, weighted int
	for size, count := range p.PathSizes {
		total += count
		weighted += size * count
	}
	if total == 0 {
		return 0.0
	}
	return float64(weighted) / float64(total)
}

// IPv4Count is the number of announced IPv4 prefixes.
func (p *Profile) IPv4Count() int {
	n := 0
	for prefix := range p.AnnouncedPrefixes {
		if isIPv4Prefix(prefix) {
			n++
		}
	}
	return n
}

// IPv6Count is the number of announced non-IPv4 prefixes.
func (p *Profile) IPv6Count() int {
	return len(p.AnnouncedPrefixes) - p.IPv4Count()
}

// TotalPrefixes is the announced prefix set size.
func (p *Profile) TotalPrefixes() int {
	return len(p.AnnouncedPrefixes)
}

// TotalNeighbours is the neighbour set size.
func (p *Profile) TotalNeighbours() int {
	return len(p.Neighbours)
}

// PrefixList returns the announced prefixes in sorted order.
func (p *Profile) PrefixList() []string {
	return sortedKeys(p.AnnouncedPrefixes)
}

// NeighbourList returns the neighbour AS IDs in sorted order.
func (p *Profile) NeighbourList() []string {
	return sortedKeys(p.Neighbours)
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s: %s, Mean Path Size of %.1f, %d Prefixes, %d Neighbours",
		p.ID, p.Location, p.MeanPathSize(), p.TotalPrefixes(), p.TotalNeighbours())
}

func isIPv4Prefix(prefix string) bool {
	host := prefix
	if i := strings.IndexByte(prefix, '/'); i >= 0 {
		host = prefix[:i]
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
