// Package analysis implements the correlation and saturation engines over
// the per-entity series built from the history.
package analysis

import "github.com/i474232898/parking-data-aggregation/internal/series"

// Config are the immutable analysis parameters. A Config value is passed
// into the engine at construction, so several windows with different
// parameters can run in one process without touching globals.
type Config struct {
	// Mode selects the series variant fed to the correlation engine.
	Mode series.Mode

	// LookbackDays are the correlation windows to compute, in days.
	LookbackDays []int

	// MinCommonPoints is the minimum number of aligned timestamps a
	// car/bike pair needs; pairs below it are discarded entirely.
	MinCommonPoints int

	// DistanceWeightKm parameterizes the exponential decay of the pair
	// score: score = |r| * exp(-distance / DistanceWeightKm).
	DistanceWeightKm float64

	// MaxDistanceKm and MinAbsCorrelation are the default display filters
	// applied to the top-global subset.
	MaxDistanceKm     float64
	MinAbsCorrelation float64

	// TopNPairs truncates the top-global subset.
	TopNPairs int

	// SaturationLookbackDays is the fixed saturation window.
	SaturationLookbackDays int

	// SaturationThreshold is the occupancy rate at or above which a point
	// counts as saturated.
	SaturationThreshold float64
}

// DefaultConfig returns the parameters the production pipeline runs with.
func DefaultConfig() Config {
	return Config{
		Mode:                   series.ModeOccupancy,
		LookbackDays:           []int{7, 14, 21, 30},
		MinCommonPoints:        40,
		DistanceWeightKm:       1.0,
		MaxDistanceKm:          2.0,
		MinAbsCorrelation:      0.25,
		TopNPairs:              50,
		SaturationLookbackDays: 7,
		SaturationThreshold:    0.90,
	}
}
