package analysis

import (
	"errors"
	"sort"
	"time"

	"github.com/i474232898/parking-data-aggregation/internal/history"
	"github.com/i474232898/parking-data-aggregation/internal/series"
	"github.com/i474232898/parking-data-aggregation/internal/stats"
)

// ErrEmptyHistory signals that saturation analysis got no usable timestamps.
// No ranking or curve exists for zero data points, so the run aborts.
var ErrEmptyHistory = errors.New("analysis: empty history")

// EntityStat is one entity's saturation summary over the window.
type EntityStat struct {
	Name    string  `json:"name"`
	MeanOcc float64 `json:"mean_occ"`
	MaxOcc  float64 `json:"max_occ"`
	SatPct  float64 `json:"sat_pct"` // fraction of observed time at or above threshold
	NPoints int     `json:"n_points"`
}

// Curve is a city-wide average-occupancy curve as parallel arrays, the shape
// the site charts consume.
type Curve struct {
	Timestamps []string  `json:"timestamps"`
	AvgOcc     []float64 `json:"avg_occ"`
}

// SaturationResult is the output of the fixed-window saturation analysis.
type SaturationResult struct {
	LatestTS     time.Time
	LookbackDays int
	Threshold    float64
	CarRanking   []EntityStat
	BikeRanking  []EntityStat
	CarCurve     Curve
	BikeCurve    Curve
}

// Saturation computes the per-entity rankings and city curves over the
// configured saturation window. Saturation is occupancy-based regardless of
// the correlation mode.
func (e *Engine) Saturation(records []history.Record) (SaturationResult, error) {
	latest, ok := history.LatestTimestamp(records)
	if !ok {
		return SaturationResult{}, ErrEmptyHistory
	}
	cutoff := latest.Add(-time.Duration(e.cfg.SaturationLookbackDays) * 24 * time.Hour)

	set := series.Build(records, series.Options{
		Mode:      series.ModeOccupancy,
		Cutoff:    &cutoff,
		MinPoints: 1,
	})

	res := SaturationResult{
		LatestTS:     latest,
		LookbackDays: e.cfg.SaturationLookbackDays,
		Threshold:    e.cfg.SaturationThreshold,
	}
	res.CarRanking = e.ranking(set[history.TypeCar])
	res.BikeRanking = e.ranking(set[history.TypeBike])
	res.CarCurve = cityCurve(set[history.TypeCar])
	res.BikeCurve = cityCurve(set[history.TypeBike])

	e.log.Info().
		Int("cars", len(res.CarRanking)).Int("bikes", len(res.BikeRanking)).
		Msg("saturation computed")
	return res, nil
}

func (e *Engine) ranking(byName map[string]series.Series) []EntityStat {
	out := make([]EntityStat, 0, len(byName))
	for name, s := range byName {
		values := s.Values(s.Times())
		if len(values) == 0 {
			continue
		}
		mean, _ := stats.Mean(values)
		maxOcc := values[0]
		saturated := 0
		for _, v := range values {
			if v > maxOcc {
				maxOcc = v
			}
			if v >= e.cfg.SaturationThreshold {
				saturated++
			}
		}
		out = append(out, EntityStat{
			Name:    name,
			MeanOcc: round4(mean),
			MaxOcc:  round4(maxOcc),
			SatPct:  round4(float64(saturated) / float64(len(values))),
			NPoints: len(values),
		})
	}

	// Deterministic base order before the ranking sort, so equal stats rank
	// alphabetically.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MeanOcc != b.MeanOcc {
			return a.MeanOcc > b.MeanOcc
		}
		if a.SatPct != b.SatPct {
			return a.SatPct > b.SatPct
		}
		return a.MaxOcc > b.MaxOcc
	})
	return out
}

// cityCurve averages occupancy across all entities reporting at each
// timestamp. Timestamps with no reporting entity are omitted, never
// interpolated or zero-filled.
func cityCurve(byName map[string]series.Series) Curve {
	sums := map[time.Time]float64{}
	counts := map[time.Time]int{}
	for _, s := range byName {
		for ts, v := range s {
			sums[ts] += v
			counts[ts]++
		}
	}

	times := make([]time.Time, 0, len(sums))
	for ts := range sums {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	curve := Curve{
		Timestamps: make([]string, 0, len(times)),
		AvgOcc:     make([]float64, 0, len(times)),
	}
	for _, ts := range times {
		curve.Timestamps = append(curve.Timestamps, ts.Format(time.RFC3339))
		curve.AvgOcc = append(curve.AvgOcc, round4(sums[ts]/float64(counts[ts])))
	}
	return curve
}
