// Package series turns raw history records into per-entity time-indexed
// value series, ready for correlation and saturation analysis.
package series

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/parking-data-aggregation/internal/history"
)

// Mode selects what value a series carries per timestamp.
type Mode string

const (
	// ModeOccupancy stores the occupancy rate 1 - free/total, clamped to [0,1].
	ModeOccupancy Mode = "occupancy"
	// ModeFreeDelta stores the change in free count between consecutive
	// observations of the same entity. This is the older analysis variant,
	// kept selectable instead of living in a forked script.
	ModeFreeDelta Mode = "free_delta"
)

// Series maps timestamps to values for one entity.
type Series map[time.Time]float64

// Times returns the series' timestamps in ascending order.
func (s Series) Times() []time.Time {
	out := make([]time.Time, 0, len(s))
	for ts := range s {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Set is the builder output: type tag -> entity name -> series.
type Set map[string]map[string]Series

// Entities returns the entity names of one type in sorted order.
func (s Set) Entities(tag string) []string {
	names := make([]string, 0, len(s[tag]))
	for name := range s[tag] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return v, err == nil
}

// Options controls how a Set is built.
type Options struct {
	Mode   Mode
	Cutoff *time.Time // drop points strictly before this instant
	// MinPoints drops entities whose finished series has fewer points.
	// Correlation passes 2 (it needs at least two aligned points and
	// filtering here spares the cross-join the wasted work); saturation
	// rankings keep single-point entities.
	MinPoints int
}

// Build walks the history in file order and produces per-entity series.
//
// Skip rules: blank date/time/type/name, unparseable timestamps, unknown
// types, points before cutoff, and unparseable numbers are all dropped
// silently. In occupancy mode a capacity of zero or less also drops the
// point. Duplicate timestamps for one entity keep the later row
// (last-write-wins in arrival order).
func Build(records []history.Record, opts Options) Set {
	mode, cutoff := opts.Mode, opts.Cutoff
	set := Set{
		history.TypeCar:  map[string]Series{},
		history.TypeBike: map[string]Series{},
	}

	for _, r := range records {
		tag := strings.TrimSpace(r.Type)
		name := strings.TrimSpace(r.Name)
		if r.Date == "" || r.Clock == "" || tag == "" || name == "" {
			continue
		}
		if !history.KnownType(tag) {
			continue
		}
		ts, err := r.Timestamp()
		if err != nil {
			continue
		}
		if cutoff != nil && ts.Before(*cutoff) {
			continue
		}

		free, ok := parseFloat(r.Free)
		if !ok {
			continue
		}

		var value float64
		switch mode {
		case ModeFreeDelta:
			value = free
		default:
			total, ok := parseFloat(r.Total)
			if !ok || total <= 0 {
				continue
			}
			occ := 1.0 - free/total
			if occ < 0 {
				occ = 0
			}
			if occ > 1 {
				occ = 1
			}
			value = occ
		}

		byName := set[tag]
		if byName[name] == nil {
			byName[name] = Series{}
		}
		byName[name][ts] = value
	}

	if mode == ModeFreeDelta {
		for tag, byName := range set {
			for name, s := range byName {
				set[tag][name] = toDeltas(s)
			}
		}
	}

	if opts.MinPoints > 0 {
		for _, byName := range set {
			for name, s := range byName {
				if len(s) < opts.MinPoints {
					delete(byName, name)
				}
			}
		}
	}
	return set
}

// toDeltas converts a raw free-count series into consecutive differences,
// each keyed at the later of the two timestamps it spans.
func toDeltas(raw Series) Series {
	times := raw.Times()
	deltas := make(Series, len(raw))
	for i := 1; i < len(times); i++ {
		deltas[times[i]] = raw[times[i]] - raw[times[i-1]]
	}
	return deltas
}

// CommonTimes returns the sorted intersection of two series' timestamps.
func CommonTimes(a, b Series) []time.Time {
	var common []time.Time
	for ts := range a {
		if _, ok := b[ts]; ok {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })
	return common
}

// Values extracts the series' values at the given timestamps, in order.
func (s Series) Values(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, ts := range times {
		out[i] = s[ts]
	}
	return out
}
