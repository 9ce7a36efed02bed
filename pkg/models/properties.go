package models

// Property names used as keys in training baselines, prediction reports and
// the JSON/CSV exchange formats.
const (
	PropLocation        = "location"
	PropMidPathCount    = "mid_path_count"
	PropEndPathCount    = "end_path_count"
	PropTimesSeen       = "times_seen"
	PropMeanPathSize    = "mean_path_size"
	PropIPv4Count       = "ipv4_count"
	PropIPv6Count       = "ipv6_count"
	PropTotalPrefixes   = "total_prefixes"
	PropTotalNeighbours = "total_neighbours"
	PropPathSizes       = "path_sizes"
)

// NumericProperty pairs a trainable numeric property name with its accessor.
type NumericProperty struct {
	Name  string
	Value func(*Profile) float64
}

// NumericProperties is the ordered list of scalar properties tracked by the
// training engine. Location (categorical) and path_sizes (multiset) are
// handled separately; identifier and the raw prefix/neighbour sets are never
// trained on.
var NumericProperties = []NumericProperty{
	{PropMidPathCount, func(p *Profile) float64 { return float64(p.MidPathCount) }},
	{PropEndPathCount, func(p *Profile) float64 { return float64(p.EndPathCount) }},
	{PropTimesSeen, func(p *Profile) float64 { return float64(p.TimesSeen()) }},
	{PropMeanPathSize, func(p *Profile) float64 { return p.MeanPathSize() }},
	{PropIPv4Count, func(p *Profile) float64 { return float64(p.IPv4Count()) }},
	{PropIPv6Count, func(p *Profile) float64 { return float64(p.IPv6Count()) }},
	{PropTotalPrefixes, func(p *Profile) float64 { return float64(p.TotalPrefixes()) }},
	{PropTotalNeighbours, func(p *Profile) float64 { return float64(p.TotalNeighbours()) }},
}
