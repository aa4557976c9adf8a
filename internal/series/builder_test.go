package series

import (
	"testing"
	"time"

	"github.com/i474232898/parking-data-aggregation/internal/history"
)

func rec(date, clock, tag, name, free, total string) history.Record {
	return history.Record{Date: date, Clock: clock, Type: tag, Name: name, Free: free, Total: total}
}

func ts(t *testing.T, date, clock string) time.Time {
	t.Helper()
	v, err := history.MakeTimestamp(date, clock)
	if err != nil {
		t.Fatalf("bad timestamp %s %s: %v", date, clock, err)
	}
	return v
}

func TestBuildOccupancy(t *testing.T) {
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeCar, "Comedie", "150", "600"), // occ 0.75
		rec("2026-08-01", "11:00", history.TypeCar, "Comedie", "300", "600"), // occ 0.50
		rec("2026-08-01", "10:00", history.TypeBike, "Gare", "5", "20"),      // occ 0.75
		rec("2026-08-01", "11:00", history.TypeBike, "Gare", "0", "20"),      // occ 1.00
	}
	set := Build(records, Options{Mode: ModeOccupancy, MinPoints: 2})

	s := set[history.TypeCar]["Comedie"]
	if len(s) != 2 {
		t.Fatalf("expected 2 points, got %d", len(s))
	}
	if got := s[ts(t, "2026-08-01", "10:00")]; got != 0.75 {
		t.Fatalf("expected occupancy 0.75, got %v", got)
	}
	if got := set[history.TypeBike]["Gare"][ts(t, "2026-08-01", "11:00")]; got != 1.0 {
		t.Fatalf("expected occupancy 1.0, got %v", got)
	}
}

func TestBuildSkipsMalformedRows(t *testing.T) {
	records := []history.Record{
		rec("", "10:00", history.TypeCar, "A", "1", "10"),
		rec("2026-08-01", "10:00", "", "A", "1", "10"),
		rec("2026-08-01", "10:00", "Tram", "A", "1", "10"),
		rec("2026-08-01", "bad", history.TypeCar, "A", "1", "10"),
		rec("2026-08-01", "10:00", history.TypeCar, "A", "abc", "10"),
		rec("2026-08-01", "10:00", history.TypeCar, "A", "1", "0"), // total <= 0
		rec("2026-08-01", "10:00", history.TypeCar, "", "1", "10"),
	}
	set := Build(records, Options{Mode: ModeOccupancy, MinPoints: 2})
	if len(set[history.TypeCar]) != 0 || len(set[history.TypeBike]) != 0 {
		t.Fatalf("expected empty set, got %v", set)
	}
}

func TestBuildClampsOccupancy(t *testing.T) {
	// free > total is bad upstream data; occupancy must clamp to 0, never go
	// negative.
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeCar, "A", "700", "600"),
		rec("2026-08-01", "11:00", history.TypeCar, "A", "600", "600"),
	}
	set := Build(records, Options{Mode: ModeOccupancy, MinPoints: 2})
	s := set[history.TypeCar]["A"]
	if got := s[ts(t, "2026-08-01", "10:00")]; got != 0 {
		t.Fatalf("expected clamped 0, got %v", got)
	}
}

func TestBuildLastWriteWins(t *testing.T) {
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeCar, "A", "300", "600"),
		rec("2026-08-01", "11:00", history.TypeCar, "A", "150", "600"),
		// Duplicate timestamp arriving later overwrites the first value.
		rec("2026-08-01", "10:00", history.TypeCar, "A", "0", "600"),
	}
	set := Build(records, Options{Mode: ModeOccupancy, MinPoints: 2})
	if got := set[history.TypeCar]["A"][ts(t, "2026-08-01", "10:00")]; got != 1.0 {
		t.Fatalf("expected later record to win (occ 1.0), got %v", got)
	}
}

func TestBuildCutoff(t *testing.T) {
	cutoff := ts(t, "2026-08-01", "11:00")
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeCar, "A", "150", "600"),
		rec("2026-08-01", "11:00", history.TypeCar, "A", "150", "600"),
		rec("2026-08-01", "12:00", history.TypeCar, "A", "150", "600"),
	}
	set := Build(records, Options{Mode: ModeOccupancy, Cutoff: &cutoff, MinPoints: 2})
	s := set[history.TypeCar]["A"]
	if len(s) != 2 {
		t.Fatalf("expected 2 points at or after cutoff, got %d", len(s))
	}
	if _, ok := s[ts(t, "2026-08-01", "10:00")]; ok {
		t.Fatal("point before cutoff must be dropped")
	}
}

func TestBuildDropsSinglePointEntities(t *testing.T) {
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeCar, "Lonely", "150", "600"),
		rec("2026-08-01", "10:00", history.TypeCar, "Kept", "150", "600"),
		rec("2026-08-01", "11:00", history.TypeCar, "Kept", "100", "600"),
	}
	set := Build(records, Options{Mode: ModeOccupancy, MinPoints: 2})
	if _, ok := set[history.TypeCar]["Lonely"]; ok {
		t.Fatal("single-point entity must be discarded")
	}
	if _, ok := set[history.TypeCar]["Kept"]; !ok {
		t.Fatal("two-point entity must be kept")
	}
}

func TestBuildFreeDeltaMode(t *testing.T) {
	records := []history.Record{
		rec("2026-08-01", "10:00", history.TypeBike, "Gare", "10", "20"),
		rec("2026-08-01", "11:00", history.TypeBike, "Gare", "4", "20"),
		rec("2026-08-01", "12:00", history.TypeBike, "Gare", "12", "20"),
	}
	set := Build(records, Options{Mode: ModeFreeDelta, MinPoints: 2})
	s := set[history.TypeBike]["Gare"]
	if len(s) != 2 {
		t.Fatalf("expected 2 deltas from 3 raw points, got %d", len(s))
	}
	if got := s[ts(t, "2026-08-01", "11:00")]; got != -6 {
		t.Fatalf("expected delta -6, got %v", got)
	}
	if got := s[ts(t, "2026-08-01", "12:00")]; got != 8 {
		t.Fatalf("expected delta 8, got %v", got)
	}
}

func TestCommonTimesAndValues(t *testing.T) {
	a := Series{
		ts(t, "2026-08-01", "10:00"): 0.1,
		ts(t, "2026-08-01", "11:00"): 0.2,
		ts(t, "2026-08-01", "12:00"): 0.3,
	}
	b := Series{
		ts(t, "2026-08-01", "11:00"): 0.9,
		ts(t, "2026-08-01", "12:00"): 0.8,
		ts(t, "2026-08-01", "13:00"): 0.7,
	}
	common := CommonTimes(a, b)
	if len(common) != 2 {
		t.Fatalf("expected 2 common timestamps, got %d", len(common))
	}
	if !common[0].Before(common[1]) {
		t.Fatal("common timestamps must be sorted ascending")
	}
	av := a.Values(common)
	bv := b.Values(common)
	if av[0] != 0.2 || bv[0] != 0.9 {
		t.Fatalf("values not aligned: %v %v", av, bv)
	}
}
