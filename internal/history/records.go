// Package history implements the flat CSV history store shared by ingestion
// and analysis: one row per (timestamp, entity) observation of free spots and
// total capacity.
package history

import (
	"strings"
	"time"
)

// Entity type tags as they appear in the Type column. The French tags are the
// on-disk format of the existing history files and are kept for
// compatibility.
const (
	TypeCar  = "Voiture"
	TypeBike = "Velo"
)

// TimestampLayout is the layout of the Date and Heure columns combined.
const TimestampLayout = "2006-01-02 15:04"

// Record is one raw history row. Numeric columns stay as strings here;
// parse failures are an analysis-time concern (malformed rows are skipped,
// not rejected at read time).
type Record struct {
	Date  string // YYYY-MM-DD
	Clock string // HH:MM
	Type  string
	Name  string
	Free  string
	Total string
}

// Timestamp parses the record's Date/Heure pair. No timezone conversion is
// applied; history files are assumed internally consistent.
func (r Record) Timestamp() (time.Time, error) {
	return MakeTimestamp(r.Date, r.Clock)
}

// MakeTimestamp combines a date and a clock string into a comparable instant.
func MakeTimestamp(date, clock string) (time.Time, error) {
	return time.Parse(TimestampLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
}

// LatestTimestamp returns the most recent parseable timestamp across the
// given records, or ok=false when none parses.
func LatestTimestamp(records []Record) (time.Time, bool) {
	var best time.Time
	found := false
	for _, r := range records {
		ts, err := r.Timestamp()
		if err != nil {
			continue
		}
		if !found || ts.After(best) {
			best = ts
			found = true
		}
	}
	return best, found
}

// KnownType reports whether tag is one of the entity types we track.
func KnownType(tag string) bool {
	return tag == TypeCar || tag == TypeBike
}
