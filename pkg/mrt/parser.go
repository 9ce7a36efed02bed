package mrt

import (
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
	gomrt "github.com/osrg/gobgp/v3/pkg/packet/mrt"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/location"
	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
	"github.com/hervehildenbrand/bgp-baseline/pkg/models"
)

const (
	// messagesAvg is the average record count of a routeviews snapshot,
	// used only for the ETA in progress logs.
	messagesAvg = 1154829

	progressEvery = 100000

	// maxRecordSize bounds a single MRT record when scanning the stream.
	maxRecordSize = 1 << 24
)

// Parser converts one table-dump-v2 record stream into per-AS profiles.
// A Parser accumulates state across records (the active peer index table and
// the AS arena) and must not be reused for a second file.
type Parser struct {
	resolver location.Resolver

	// peers is the active peer index table; table-dump-v2 carries exactly
	// one, and every RIB entry references it by index.
	peers []*gomrt.Peer

	arena map[string]*asBuilder

	// unsupported counts skipped records per MRT type, logged once per type.
	unsupported map[gomrt.MRTType]int
}

// asBuilder is the mutable accumulator behind a models.Profile. It never
// leaves the parser; parse completion converts the arena into immutable
// profiles.
type asBuilder struct {
	location   string
	mid, end   int
	pathSizes  map[int]int
	prefixes   map[string]struct{}
	neighbours map[string]struct{}
}

// NewParser creates a parser that resolves AS locations through resolver.
func NewParser(resolver location.Resolver) *Parser {
	if resolver == nil {
		resolver = location.NewNullResolver()
	}
	return &Parser{
		resolver:    resolver,
		arena:       make(map[string]*asBuilder),
		unsupported: make(map[gomrt.MRTType]int),
	}
}

// ImportBZ2 parses a bzip2-compressed table dump file. limit, when positive,
// truncates parsing after that many records.
func (p *Parser) ImportBZ2(path string, limit int) (map[string]*models.Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	defer file.Close()

	logging.L().Info("reading table dump", zap.String("path", path))
	return p.ImportStream(bzip2.NewReader(bufio.NewReader(file)), limit)
}

// ImportStream parses an uncompressed MRT record stream.
func (p *Parser) ImportStream(r io.Reader, limit int) (map[string]*models.Profile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), maxRecordSize)
	scanner.Split(gomrt.SplitMrt)

	start := time.Now()
	count := 0
	for scanner.Scan() {
		p.record(scanner.Bytes())

		count++
		if limit > 0 && count >= limit {
			break
		}
		if count%progressEvery == 0 {
			p.logProgress(count, start)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read MRT stream: %w", err)
	}

	logging.L().Info("finished table dump",
		zap.Int("records", count),
		zap.Duration("elapsed", time.Since(start).Round(time.Second)))

	return p.freeze()
}

// record decodes and dispatches a single raw MRT record. Records the decoder
// flags as malformed are skipped without touching parser state.
func (p *Parser) record(raw []byte) {
	if len(raw) < gomrt.MRT_COMMON_HEADER_LEN {
		return
	}
	header := &gomrt.MRTHeader{}
	if err := header.DecodeFromBytes(raw[:gomrt.MRT_COMMON_HEADER_LEN]); err != nil {
		return
	}
	if header.Type != gomrt.TABLE_DUMPv2 {
		p.unsupported[header.Type]++
		if p.unsupported[header.Type] == 1 {
			logging.L().Warn("unsupported MRT record type skipped",
				zap.Uint16("type", uint16(header.Type)))
		}
		return
	}
	message, err := gomrt.ParseMRTBody(header, raw[gomrt.MRT_COMMON_HEADER_LEN:])
	if err != nil {
		return
	}

	switch body := message.Body.(type) {
	case *gomrt.PeerIndexTable:
		p.handlePeerIndexTable(body)
	case *gomrt.Rib:
		p.handleRIB(body)
	}
}

// handlePeerIndexTable installs the peer list referenced by subsequent RIB
// entries.
func (p *Parser) handlePeerIndexTable(table *gomrt.PeerIndexTable) {
	p.peers = table.Peers
}

// handleRIB processes one announced prefix with its competing path attribute
// sets.
func (p *Parser) handleRIB(rib *gomrt.Rib) {
	if rib.Prefix == nil {
		return
	}
	prefix := rib.Prefix.String()

	for _, entry := range rib.Entries {
		if int(entry.PeerIndex) >= len(p.peers) {
			// RIB entry before any peer index table, or a stale index
			continue
		}

		var nextHop string
		var asPath, as4Path []string
		for _, attr := range entry.PathAttributes {
			switch a := attr.(type) {
			case *bgp.PathAttributeNextHop:
				nextHop = a.Value.String()
			case *bgp.PathAttributeAsPath:
				asPath = renderASPath(a.Value)
			case *bgp.PathAttributeAs4Path:
				as4Path = as4Path[:0]
				for _, param := range a.Value {
					as4Path = append(as4Path, renderSegment(param.GetType(), param.GetAS())...)
				}
			case *bgp.PathAttributeMpReachNLRI:
				if a.Nexthop != nil {
					nextHop = a.Nexthop.String()
				}
			case *bgp.PathAttributeMpUnreachNLRI:
				// Withdrawn routes carry no statistics in a table dump.
			}
		}
		if nextHop == "" {
			continue
		}
		p.applyPath(mergeASPaths(asPath, as4Path), prefix)
	}
}

// renderASPath flattens AS_PATH segments into path tokens.
func renderASPath(params []bgp.AsPathParamInterface) []string {
	var tokens []string
	for _, param := range params {
		tokens = append(tokens, renderSegment(param.GetType(), param.GetAS())...)
	}
	return tokens
}

// renderSegment turns one path segment into tokens. AS_SEQUENCE hops come out
// as plain AS numbers; set segments collapse into a single bracketed token and
// confederation sequences keep their boundary markers, so their hops read as
// present but unattributable.
func renderSegment(segType uint8, asns []uint32) []string {
	strs := make([]string, len(asns))
	for i, asn := range asns {
		strs[i] = strconv.FormatUint(uint64(asn), 10)
	}
	switch segType {
	case bgp.BGP_ASPATH_ATTR_TYPE_SET:
		return []string{"{" + strings.Join(strs, ",") + "}"}
	case bgp.BGP_ASPATH_ATTR_TYPE_CONFED_SET:
		return []string{"[" + strings.Join(strs, ",") + "]"}
	case bgp.BGP_ASPATH_ATTR_TYPE_CONFED_SEQ:
		if len(strs) == 0 {
			return nil
		}
		if len(strs) == 1 {
			return []string{"(" + strs[0] + ")"}
		}
		tokens := make([]string, 0, len(strs))
		tokens = append(tokens, "("+strs[0])
		tokens = append(tokens, strs[1:len(strs)-1]...)
		tokens = append(tokens, strs[len(strs)-1]+")")
		return tokens
	default: // AS_SEQUENCE
		return strs
	}
}

// mergeASPaths overlays AS4_PATH onto AS_PATH: the last len(as4Path) hops of
// the 2-byte path are replaced by the 4-byte ones (RFC 4893 transition).
func mergeASPaths(asPath, as4Path []string) []string {
	if len(as4Path) == 0 {
		return asPath
	}
	n := len(asPath) - len(as4Path)
	if n < 0 {
		n = 0
	}
	merged := make([]string, 0, n+len(as4Path))
	merged = append(merged, asPath[:n]...)
	merged = append(merged, as4Path...)
	return merged
}

// applyPath updates per-AS statistics for one announced prefix. Tokens that
// are not integer-parseable AS numbers (sets, confederation markers) become
// gap hops: they earn no credit and break neighbour adjacency across them.
func (p *Parser) applyPath(tokens []string, prefix string) {
	if len(tokens) == 0 {
		return
	}

	// "" marks a gap hop.
	hops := make([]string, len(tokens))
	for i, token := range tokens {
		id, err := models.CanonicalID(token)
		if err != nil {
			continue
		}
		hops[i] = id
		p.ensure(id)
	}

	n := len(hops)
	for i, id := range hops {
		if id == "" {
			continue
		}
		builder := p.arena[id]
		if i < n-1 && hops[i+1] != "" {
			builder.neighbours[hops[i+1]] = struct{}{}
			p.arena[hops[i+1]].neighbours[id] = struct{}{}
		}
		if i == 0 || i == n-1 {
			builder.end++
		} else {
			builder.mid++
		}
	}

	if origin := hops[n-1]; origin != "" {
		builder := p.arena[origin]
		builder.pathSizes[n-1]++
		builder.prefixes[prefix] = struct{}{}
	}
}

// ensure lazily creates the arena slot for an AS seen for the first time.
func (p *Parser) ensure(id string) {
	if _, ok := p.arena[id]; ok {
		return
	}
	loc := p.resolver.Resolve(id)
	if loc == "" {
		loc = models.UnknownLocation
	}
	p.arena[id] = &asBuilder{
		location:   loc,
		pathSizes:  make(map[int]int),
		prefixes:   make(map[string]struct{}),
		neighbours: make(map[string]struct{}),
	}
}

// freeze converts the mutable arena into the immutable public profiles.
func (p *Parser) freeze() (map[string]*models.Profile, error) {
	asMap := make(map[string]*models.Profile, len(p.arena))
	for id, builder := range p.arena {
		profile, err := models.NewProfile(
			id, builder.location, builder.mid, builder.end,
			builder.pathSizes, setKeys(builder.prefixes), setKeys(builder.neighbours))
		if err != nil {
			return nil, fmt.Errorf("freeze AS map: %w", err)
		}
		asMap[id] = profile
	}
	return asMap, nil
}

func (p *Parser) logProgress(count int, start time.Time) {
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed
	left := messagesAvg - count
	if left < 0 {
		left = 0
	}
	eta := time.Duration(float64(left) / rate * float64(time.Second))
	logging.L().Info("processing table dump",
		zap.Int("records", count),
		zap.Int("records_per_sec", int(rate)),
		zap.Duration("eta", eta.Round(time.Second)))
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}
