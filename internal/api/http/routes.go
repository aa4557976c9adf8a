package httpapi

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/parking-data-aggregation/internal/config"
	"github.com/i474232898/parking-data-aggregation/internal/report"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. The API serves
// the artifacts the pipeline wrote to disk; it never computes anything
// itself.
func RegisterRoutes(app *fiber.App, cfg *config.AppConfig) {
	v1 := app.Group("/api/v1")

	v1.Get("/correlations", func(c *fiber.Ctx) error {
		var q correlationsQuery
		if err := q.bind(c, cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return sendArtifact(c, report.CorrelationPath(cfg.OutputDir, q.Days))
	})

	v1.Get("/saturation", func(c *fiber.Ctx) error {
		return sendArtifact(c, report.SaturationPath(cfg.OutputDir, cfg.Analysis.SaturationLookbackDays))
	})

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		return sendArtifact(c, filepath.Join(cfg.OutputDir, "latest_snapshot.json"))
	})

	v1.Get("/metadata", func(c *fiber.Ctx) error {
		return sendArtifact(c, filepath.Join(cfg.OutputDir, "metadata.json"))
	})
}

// sendArtifact streams a previously generated JSON document.
func sendArtifact(c *fiber.Ctx, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, "artifact not generated yet")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read artifact")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// correlationsQuery holds query parameters for the correlations endpoint.
type correlationsQuery struct {
	Days int `validate:"required,min=1"`
}

func (q *correlationsQuery) bind(c *fiber.Ctx, cfg *config.AppConfig) error {
	q.Days = c.QueryInt("days")
	if err := validate.Struct(q); err != nil {
		return err
	}
	for _, d := range cfg.Analysis.LookbackDays {
		if d == q.Days {
			return nil
		}
	}
	return errors.New("days must be one of the configured lookback windows")
}
