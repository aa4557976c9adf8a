// Package pipeline runs the batch analytics pass: load the full history and
// metadata once, compute every correlation window plus the saturation
// analysis, and publish the JSON artifacts.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/parking-data-aggregation/internal/analysis"
	"github.com/i474232898/parking-data-aggregation/internal/config"
	"github.com/i474232898/parking-data-aggregation/internal/history"
	"github.com/i474232898/parking-data-aggregation/internal/metadata"
	"github.com/i474232898/parking-data-aggregation/internal/report"
)

// Runner executes analytics passes over the on-disk history.
type Runner struct {
	cfg *config.AppConfig
	log zerolog.Logger
}

// New builds a runner.
func New(cfg *config.AppConfig, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// Analyze loads everything once, computes all windows and writes the
// artifacts. Correlation windows tolerate an empty history (they publish
// zero pairs); saturation does not, and its error aborts the pass after the
// correlation artifacts are already on disk.
func (r *Runner) Analyze() error {
	store := history.NewStore(r.cfg.HistoryCSV)
	records, err := store.ReadAll()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	meta, err := metadata.Load(r.cfg.MetadataJSON)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	engine := analysis.NewEngine(r.cfg.Analysis, meta, r.log)
	runID := uuid.NewString()

	for _, days := range r.cfg.Analysis.LookbackDays {
		res := engine.Correlations(records, days)
		art := report.BuildCorrelation(runID, r.cfg.Analysis, res)
		path := report.CorrelationPath(r.cfg.OutputDir, days)
		if err := report.WriteJSON(path, art); err != nil {
			return fmt.Errorf("write correlations_%d: %w", days, err)
		}
		r.log.Info().Str("run_id", runID).Int("days", days).
			Int("pairs", art.Counts.PairsComputed).Str("path", path).
			Msg("correlation artifact written")
	}

	sat, err := engine.Saturation(records)
	if err != nil {
		return fmt.Errorf("saturation analysis: %w", err)
	}
	satPath := report.SaturationPath(r.cfg.OutputDir, r.cfg.Analysis.SaturationLookbackDays)
	if err := report.WriteJSON(satPath, report.BuildSaturation(runID, sat)); err != nil {
		return fmt.Errorf("write saturation: %w", err)
	}
	r.log.Info().Str("run_id", runID).Str("path", satPath).Msg("saturation artifact written")

	return nil
}
