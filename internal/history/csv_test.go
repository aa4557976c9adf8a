package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadAllMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.csv"))
	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history, got %d records", len(records))
	}
}

func TestAppendThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historique.csv")
	s := NewStore(path)

	rows := []Record{
		{Date: "2026-08-01", Clock: "10:00", Type: TypeCar, Name: "Comedie", Free: "120", Total: "600"},
		{Date: "2026-08-01", Clock: "10:00", Type: TypeBike, Name: "Gare Saint-Roch", Free: "3", Total: "20"},
	}
	if err := s.Append(rows); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Date;Heure;Type;Nom;Places_Libres;Places_Totales\n") {
		t.Fatalf("missing or wrong header: %q", string(raw))
	}

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "Comedie" || records[0].Total != "600" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}

	// Second append must not duplicate the header.
	if err := s.Append(rows[:1]); err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	records, err = s.ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestKeysAt(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "historique.csv"))
	rows := []Record{
		{Date: "2026-08-01", Clock: "10:00", Type: TypeCar, Name: "Comedie", Free: "120", Total: "600"},
		{Date: "2026-08-01", Clock: "11:00", Type: TypeCar, Name: "Comedie", Free: "100", Total: "600"},
	}
	if err := s.Append(rows); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	keys, err := s.KeysAt("2026-08-01", "10:00")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if _, ok := keys[Key{Type: TypeCar, Name: "Comedie"}]; !ok {
		t.Fatalf("expected Comedie key, got %v", keys)
	}
}

func TestLatestTimestamp(t *testing.T) {
	records := []Record{
		{Date: "2026-08-01", Clock: "10:00"},
		{Date: "not-a-date", Clock: "zz"},
		{Date: "2026-08-02", Clock: "09:30"},
	}
	ts, ok := LatestTimestamp(records)
	if !ok {
		t.Fatal("expected a timestamp")
	}
	want, _ := MakeTimestamp("2026-08-02", "09:30")
	if !ts.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ts)
	}

	if _, ok := LatestTimestamp(nil); ok {
		t.Fatal("expected no timestamp for empty history")
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Comédie", "comedie"},
		{"  Gare Saint-Roch ", "gare saint roch"},
		{"ANTIGONE (Est)", "antigone est"},
		{"Comedie", "comedie"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalNamesFirstSeenWins(t *testing.T) {
	records := []Record{
		{Type: TypeCar, Name: "Comédie"},
		{Type: TypeCar, Name: "Comedie"},
		{Type: TypeBike, Name: "Comedie"},
	}
	m := BuildCanonicalNames(records)
	if got := m.Canonical(TypeCar, "COMEDIE"); got != "Comédie" {
		t.Fatalf("expected first-seen spelling, got %q", got)
	}
	if got := m.Canonical(TypeBike, "Comédie"); got != "Comedie" {
		t.Fatalf("expected per-type canonical name, got %q", got)
	}
	if got := m.Canonical(TypeCar, "Never Seen"); got != "Never Seen" {
		t.Fatalf("unknown names should pass through, got %q", got)
	}
}
