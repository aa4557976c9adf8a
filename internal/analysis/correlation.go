package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/parking-data-aggregation/internal/geo"
	"github.com/i474232898/parking-data-aggregation/internal/history"
	"github.com/i474232898/parking-data-aggregation/internal/metadata"
	"github.com/i474232898/parking-data-aggregation/internal/series"
	"github.com/i474232898/parking-data-aggregation/internal/stats"
)

// Pair is one computed car/bike correlation.
type Pair struct {
	Car        string   `json:"car"`
	Bike       string   `json:"bike"`
	R          float64  `json:"r"`
	AbsR       float64  `json:"abs_r"`
	DistanceKm *float64 `json:"distance_km"` // nil when either coordinate is unknown
	N          int      `json:"n"`
	Score      float64  `json:"score"`
}

// CorrelationResult is the full output of one correlation window.
type CorrelationResult struct {
	LookbackDays int
	LatestTS     *time.Time // nil on an empty history
	Cars         []string
	Bikes        []string
	// Matrix[i][j] is the coefficient for Cars[i] x Bikes[j], nil where the
	// pair was discarded for insufficient common points.
	Matrix    [][]*float64
	Pairs     []Pair // sorted by score descending, join order on ties
	TopGlobal []Pair
}

// Engine runs the analyses. It is read-only over its inputs and safe to call
// for several windows in sequence.
type Engine struct {
	cfg  Config
	meta *metadata.Document
	log  zerolog.Logger
}

// NewEngine builds an engine with the given parameters and coordinate
// metadata.
func NewEngine(cfg Config, meta *metadata.Document, log zerolog.Logger) *Engine {
	if meta == nil {
		meta = metadata.NewDocument()
	}
	return &Engine{cfg: cfg, meta: meta, log: log}
}

// round4 matches the artifact precision of the previous pipeline; display
// filters compare against the rounded values.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Correlations computes one lookback window. An empty history (or one with
// nothing inside the window) yields a result with zero pairs, not an error.
func (e *Engine) Correlations(records []history.Record, days int) CorrelationResult {
	res := CorrelationResult{LookbackDays: days}

	var cutoff *time.Time
	if latest, ok := history.LatestTimestamp(records); ok {
		res.LatestTS = &latest
		c := latest.Add(-time.Duration(days) * 24 * time.Hour)
		cutoff = &c
	}

	set := series.Build(records, series.Options{
		Mode:      e.cfg.Mode,
		Cutoff:    cutoff,
		MinPoints: 2,
	})

	cars := set.Entities(history.TypeCar)
	bikes := set.Entities(history.TypeBike)
	res.Cars = cars
	res.Bikes = bikes

	carSeries := set[history.TypeCar]
	bikeSeries := set[history.TypeBike]

	type pairKey struct{ car, bike string }
	byKey := make(map[pairKey]*Pair)

	for _, carName := range cars {
		carMap := carSeries[carName]
		carLat, carLon, carOK := e.meta.Coord(history.TypeCar, carName)

		for _, bikeName := range bikes {
			bikeMap := bikeSeries[bikeName]

			common := series.CommonTimes(carMap, bikeMap)
			n := len(common)
			if n < e.cfg.MinCommonPoints {
				continue // discarded entirely, no partial result
			}

			x := carMap.Values(common)
			y := bikeMap.Values(common)

			r, err := stats.Correlation(x, y)
			if err != nil {
				// Cannot happen for aligned non-empty vectors; guard anyway.
				e.log.Warn().Str("car", carName).Str("bike", bikeName).
					Err(err).Msg("correlation failed")
				continue
			}

			var distance *float64
			if carOK {
				if bikeLat, bikeLon, ok := e.meta.Coord(history.TypeBike, bikeName); ok {
					d := round3(geo.HaversineKm(carLat, carLon, bikeLat, bikeLon))
					distance = &d
				}
			}

			score := math.Abs(r)
			if distance != nil {
				score = math.Abs(r) * math.Exp(-*distance/e.cfg.DistanceWeightKm)
			}

			p := Pair{
				Car:        carName,
				Bike:       bikeName,
				R:          round4(r),
				AbsR:       round4(math.Abs(r)),
				DistanceKm: distance,
				N:          n,
				Score:      round4(score),
			}
			res.Pairs = append(res.Pairs, p)
			byKey[pairKey{carName, bikeName}] = &p
		}
	}

	res.Matrix = make([][]*float64, len(cars))
	for i, carName := range cars {
		row := make([]*float64, len(bikes))
		for j, bikeName := range bikes {
			if p, ok := byKey[pairKey{carName, bikeName}]; ok {
				r := p.R
				row[j] = &r
			}
		}
		res.Matrix[i] = row
	}

	sort.SliceStable(res.Pairs, func(i, j int) bool {
		return res.Pairs[i].Score > res.Pairs[j].Score
	})

	for _, p := range res.Pairs {
		if p.AbsR < e.cfg.MinAbsCorrelation {
			continue
		}
		// Unknown distance stays in by policy; only a known distance beyond
		// the limit filters a pair out.
		if p.DistanceKm != nil && *p.DistanceKm > e.cfg.MaxDistanceKm {
			continue
		}
		res.TopGlobal = append(res.TopGlobal, p)
		if len(res.TopGlobal) >= e.cfg.TopNPairs {
			break
		}
	}

	e.log.Info().Int("days", days).
		Int("cars", len(cars)).Int("bikes", len(bikes)).
		Int("pairs", len(res.Pairs)).Msg("correlation window computed")
	return res
}
