package ingest

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/i474232898/parking-data-aggregation/internal/history"
)

// Item is one entity of the latest snapshot document.
type Item struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Free   int      `json:"free"`
	Total  int      `json:"total"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Status string   `json:"status,omitempty"`
}

// propValue unwraps an NGSI attribute ({"value": ...}) or returns the raw
// value as-is.
func propValue(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		if v, present := m["value"]; present {
			return v
		}
	}
	return raw
}

// safeInt coerces NGSI numeric values (floats, numeric strings) to int,
// defaulting to 0.
func safeInt(raw any) int {
	switch v := propValue(raw).(type) {
	case float64:
		return int(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(f)
		}
	case int:
		return v
	}
	return 0
}

func asString(raw any) string {
	if s, ok := propValue(raw).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// extractPoint pulls (lat, lon) out of a GeoJSON-style location attribute.
// Coordinates arrive as [lon, lat].
func extractPoint(entity map[string]any) (lat, lon *float64, ok bool) {
	loc, isMap := propValue(entity["location"]).(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	coords, isList := loc["coordinates"].([]any)
	if !isList || len(coords) < 2 {
		return nil, nil, false
	}
	lonV, lonOK := coords[0].(float64)
	latV, latOK := coords[1].(float64)
	if !lonOK || !latOK {
		return nil, nil, false
	}
	return &latV, &lonV, true
}

func decodeEntities(raws []json.RawMessage) []map[string]any {
	out := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// parseCarEntities normalizes a FIWARE OffStreetParking payload into history
// rows and snapshot items. Parkings without a positive total capacity are
// dropped outright.
func parseCarEntities(raws []json.RawMessage, canonical history.CanonicalNames, date, clock string) ([]history.Record, []Item) {
	var rows []history.Record
	var items []Item

	for _, e := range decodeEntities(raws) {
		rawName := asString(e["name"])
		if rawName == "" {
			if addr, ok := propValue(e["address"]).(map[string]any); ok {
				rawName = asString(addr["streetAddress"])
			}
		}
		if rawName == "" {
			rawName = asString(e["id"])
		}
		if rawName == "" {
			continue
		}
		name := canonical.Canonical(history.TypeCar, rawName)

		free := safeInt(firstPresent(e, "availableSpotNumber", "availableSlotNumber"))
		total := safeInt(firstPresent(e, "totalSpotNumber", "totalSlotNumber"))
		if total <= 0 {
			continue
		}

		rows = append(rows, history.Record{
			Date: date, Clock: clock, Type: history.TypeCar, Name: name,
			Free: strconv.Itoa(free), Total: strconv.Itoa(total),
		})

		lat, lon, _ := extractPoint(e)
		items = append(items, Item{
			ID: asString(e["id"]), Name: name, Free: free, Total: total, Lat: lat, Lon: lon,
		})
	}

	sortByName(rows, items)
	return rows, items
}

// parseBikeEntities normalizes a bikestation payload. Station names live in
// the address attribute.
func parseBikeEntities(raws []json.RawMessage, canonical history.CanonicalNames, date, clock string) ([]history.Record, []Item) {
	var rows []history.Record
	var items []Item

	for _, e := range decodeEntities(raws) {
		var rawName string
		if addr, ok := propValue(e["address"]).(map[string]any); ok {
			rawName = asString(addr["streetAddress"])
			if rawName == "" {
				rawName = asString(addr["street"])
			}
		}
		if rawName == "" {
			rawName = asString(e["name"])
		}
		if rawName == "" {
			rawName = asString(e["id"])
		}
		if rawName == "" {
			continue
		}
		name := canonical.Canonical(history.TypeBike, rawName)

		free := safeInt(e["freeSlotNumber"])
		total := safeInt(e["totalSlotNumber"])

		rows = append(rows, history.Record{
			Date: date, Clock: clock, Type: history.TypeBike, Name: name,
			Free: strconv.Itoa(free), Total: strconv.Itoa(total),
		})

		lat, lon, _ := extractPoint(e)
		items = append(items, Item{
			ID: asString(e["id"]), Name: name, Free: free, Total: total,
			Lat: lat, Lon: lon, Status: asString(e["status"]),
		})
	}

	sortByName(rows, items)
	return rows, items
}

func firstPresent(e map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := e[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func sortByName(rows []history.Record, items []Item) {
	sort.SliceStable(rows, func(i, j int) bool {
		return history.NormalizeKey(rows[i].Name) < history.NormalizeKey(rows[j].Name)
	})
	sort.SliceStable(items, func(i, j int) bool {
		return history.NormalizeKey(items[i].Name) < history.NormalizeKey(items[j].Name)
	})
}
