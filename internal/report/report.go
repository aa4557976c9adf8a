// Package report packages engine outputs into the JSON contract the static
// site consumes. It is serialization only; all numbers arrive computed.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/i474232898/parking-data-aggregation/internal/analysis"
	"github.com/i474232898/parking-data-aggregation/internal/series"
)

// Filters echoes the default display filters into the artifact so the site
// can show what it is hiding.
type Filters struct {
	MaxDistanceKm     float64 `json:"max_distance_km"`
	MinAbsCorrelation float64 `json:"min_abs_correlation"`
}

// Counts summarizes one correlation window.
type Counts struct {
	Cars          int `json:"cars"`
	Bikes         int `json:"bikes"`
	PairsComputed int `json:"pairs_computed"`
}

// CorrelationArtifact is the on-disk document for one lookback window.
type CorrelationArtifact struct {
	RunID               string          `json:"run_id"`
	GeneratedAt         *string         `json:"generated_at"`
	LookbackDays        int             `json:"lookback_days"`
	MinCommonPoints     int             `json:"min_common_points"`
	DistanceWeightKm    float64         `json:"distance_weight_km"`
	Method              string          `json:"method"`
	OccupancyDefinition string          `json:"occupancy_definition,omitempty"`
	DefaultFilters      Filters         `json:"default_filters"`
	Cars                []string        `json:"cars"`
	Bikes               []string        `json:"bikes"`
	Matrix              [][]*float64    `json:"matrix"`
	Pairs               []analysis.Pair `json:"pairs"`
	TopGlobal           []analysis.Pair `json:"top_global"`
	Counts              Counts          `json:"counts"`
}

// SaturationArtifact is the on-disk document for the saturation analysis.
type SaturationArtifact struct {
	RunID        string `json:"run_id"`
	GeneratedAt  string `json:"generated_at"`
	LookbackDays int    `json:"lookback_days"`
	Threshold    float64 `json:"saturation_threshold"`
	Rankings     struct {
		Cars  []analysis.EntityStat `json:"cars"`
		Bikes []analysis.EntityStat `json:"bikes"`
	} `json:"rankings"`
	CityCurves struct {
		Cars  analysis.Curve `json:"cars"`
		Bikes analysis.Curve `json:"bikes"`
	} `json:"city_curves"`
}

func method(mode series.Mode) string {
	if mode == series.ModeFreeDelta {
		return "pearson_on_free_delta"
	}
	return "pearson_on_occupancy_rate"
}

// BuildCorrelation assembles the artifact for one computed window.
func BuildCorrelation(runID string, cfg analysis.Config, res analysis.CorrelationResult) CorrelationArtifact {
	art := CorrelationArtifact{
		RunID:            runID,
		LookbackDays:     res.LookbackDays,
		MinCommonPoints:  cfg.MinCommonPoints,
		DistanceWeightKm: cfg.DistanceWeightKm,
		Method:           method(cfg.Mode),
		DefaultFilters: Filters{
			MaxDistanceKm:     cfg.MaxDistanceKm,
			MinAbsCorrelation: cfg.MinAbsCorrelation,
		},
		Cars:      emptyIfNil(res.Cars),
		Bikes:     emptyIfNil(res.Bikes),
		Matrix:    res.Matrix,
		Pairs:     res.Pairs,
		TopGlobal: res.TopGlobal,
		Counts: Counts{
			Cars:          len(res.Cars),
			Bikes:         len(res.Bikes),
			PairsComputed: len(res.Pairs),
		},
	}
	if cfg.Mode != series.ModeFreeDelta {
		art.OccupancyDefinition = "occ = 1 - (free/total)"
	}
	if res.LatestTS != nil {
		s := res.LatestTS.Format(time.RFC3339)
		art.GeneratedAt = &s
	}
	if art.Matrix == nil {
		art.Matrix = [][]*float64{}
	}
	if art.Pairs == nil {
		art.Pairs = []analysis.Pair{}
	}
	if art.TopGlobal == nil {
		art.TopGlobal = []analysis.Pair{}
	}
	return art
}

// BuildSaturation assembles the saturation artifact.
func BuildSaturation(runID string, res analysis.SaturationResult) SaturationArtifact {
	art := SaturationArtifact{
		RunID:        runID,
		GeneratedAt:  res.LatestTS.Format(time.RFC3339),
		LookbackDays: res.LookbackDays,
		Threshold:    res.Threshold,
	}
	art.Rankings.Cars = emptyIfNil(res.CarRanking)
	art.Rankings.Bikes = emptyIfNil(res.BikeRanking)
	art.CityCurves.Cars = res.CarCurve
	art.CityCurves.Bikes = res.BikeCurve
	return art
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// CorrelationPath names the artifact for one window inside outDir.
func CorrelationPath(outDir string, days int) string {
	return filepath.Join(outDir, fmt.Sprintf("correlations_%d.json", days))
}

// SaturationPath names the saturation artifact inside outDir.
func SaturationPath(outDir string, days int) string {
	return filepath.Join(outDir, fmt.Sprintf("saturation_%dd.json", days))
}

// WriteJSON writes v as indented JSON atomically: the document appears under
// its final name only once fully written.
func WriteJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
