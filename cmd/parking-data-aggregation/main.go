package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/parking-data-aggregation/internal/api/http"
	"github.com/i474232898/parking-data-aggregation/internal/config"
	"github.com/i474232898/parking-data-aggregation/internal/ingest"
	"github.com/i474232898/parking-data-aggregation/internal/pipeline"
	"github.com/i474232898/parking-data-aggregation/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run one ingest+analyze pass and exit (CI mode)")
	skipFetch := flag.Bool("skip-fetch", false, "with -once, analyze the existing history without fetching")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(envDefault("LOG_LEVEL", "info"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ing := ingest.New(cfg, log.Logger)
	runner := pipeline.New(cfg, log.Logger)

	if *once {
		if !*skipFetch {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := ing.Run(ctx); err != nil {
				log.Error().Err(err).Msg("ingestion failed, analyzing existing history")
			}
		}
		if err := runner.Analyze(); err != nil {
			log.Fatal().Err(err).Msg("analysis failed")
		}
		return
	}

	sched := scheduler.New(ing, runner, cfg.FetchInterval, 2*time.Minute, log.Logger)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "parking-data-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "parking-data-aggregation",
		})
	})

	httpapi.RegisterRoutes(app, cfg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
