// Package metadata manages the coordinate document mapping each entity to
// its latitude/longitude. Entities without coordinates are still analyzed;
// they just get no distance-based scoring.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/i474232898/parking-data-aggregation/internal/history"
)

// Entry holds what we know about one entity's location. Lat/Lon are pointers
// so "known entity, unknown position" survives round-trips.
type Entry struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
	ID  string   `json:"id,omitempty"`
}

// Document is the on-disk metadata format. Top-level keys are the history
// type tags, matching the files the previous pipeline produced.
type Document struct {
	GeneratedAt string            `json:"generated_at,omitempty"`
	Sources     map[string]string `json:"sources,omitempty"`
	Cars        map[string]Entry  `json:"Voiture"`
	Bikes       map[string]Entry  `json:"Velo"`
}

// NewDocument returns an empty document with both type maps allocated.
func NewDocument() *Document {
	return &Document{
		Cars:  map[string]Entry{},
		Bikes: map[string]Entry{},
	}
}

func (d *Document) byType(tag string) map[string]Entry {
	switch tag {
	case history.TypeCar:
		return d.Cars
	case history.TypeBike:
		return d.Bikes
	}
	return nil
}

// Coord returns the coordinates for an entity, ok=false when the entity or
// its position is unknown.
func (d *Document) Coord(tag, name string) (lat, lon float64, ok bool) {
	m := d.byType(tag)
	if m == nil {
		return 0, 0, false
	}
	e, found := m[name]
	if !found || e.Lat == nil || e.Lon == nil {
		return 0, 0, false
	}
	return *e.Lat, *e.Lon, true
}

// Set records an entity's entry, replacing any previous one.
func (d *Document) Set(tag, name string, e Entry) {
	m := d.byType(tag)
	if m == nil {
		return
	}
	m[name] = e
}

// SetIfAbsent records the entity without coordinates, keeping an existing
// entry (which may already carry a position) intact.
func (d *Document) SetIfAbsent(tag, name string) {
	m := d.byType(tag)
	if m == nil {
		return
	}
	if _, ok := m[name]; !ok {
		m[name] = Entry{}
	}
}

// Load reads the document from path; a missing file yields an empty document.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if doc.Cars == nil {
		doc.Cars = map[string]Entry{}
	}
	if doc.Bikes == nil {
		doc.Bikes = map[string]Entry{}
	}
	return doc, nil
}

// Save writes the document atomically (temp file + rename).
func Save(path string, doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return os.Rename(tmp, path)
}
