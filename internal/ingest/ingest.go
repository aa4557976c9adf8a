package ingest

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/parking-data-aggregation/internal/config"
	"github.com/i474232898/parking-data-aggregation/internal/history"
	"github.com/i474232898/parking-data-aggregation/internal/metadata"
	"github.com/i474232898/parking-data-aggregation/internal/report"
)

// Snapshot is the latest-state document the site's map view reads.
type Snapshot struct {
	GeneratedAt string            `json:"generated_at"`
	Timezone    string            `json:"timezone"`
	Sources     map[string]string `json:"sources"`
	Cars        []Item            `json:"cars"`
	Bikes       []Item            `json:"bikes"`
}

// Service runs one ingestion pass: fetch both feeds, append new history
// rows, refresh metadata and the latest snapshot.
type Service struct {
	cfg      *config.AppConfig
	store    *history.Store
	cars     *Fetcher
	bikes    *Fetcher
	geocoder *metadata.Geocoder
	loc      *time.Location
	log      zerolog.Logger
}

// New wires an ingestion service from the app configuration.
func New(cfg *config.AppConfig, log zerolog.Logger) *Service {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Timezone).Err(err).Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	s := &Service{
		cfg:   cfg,
		store: history.NewStore(cfg.HistoryCSV),
		cars:  NewFetcher(client, "car-parkings", log),
		bikes: NewFetcher(client, "bike-stations", log),
		loc:   loc,
		log:   log,
	}
	if cfg.GeocoderAPIKey != "" {
		s.geocoder = metadata.NewGeocoder(cfg.GeocoderAPIKey, cfg.GeocodeCity, cfg.GeocodeCountry, log)
	}
	return s
}

// Run performs one full ingestion pass.
func (s *Service) Run(ctx context.Context) error {
	existing, err := s.store.ReadAll()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	canonical := history.BuildCanonicalNames(existing)

	carURL, carPayload, err := s.cars.FetchFirstWorking(ctx, s.cfg.CarParkingURLs)
	if err != nil {
		return fmt.Errorf("fetch car parkings: %w", err)
	}
	bikeURL, bikePayload, err := s.bikes.FetchFirstWorking(ctx, s.cfg.BikeStationURLs)
	if err != nil {
		return fmt.Errorf("fetch bike stations: %w", err)
	}

	now := time.Now().In(s.loc)
	date := now.Format("2006-01-02")
	clock := now.Format("15:04")

	carRows, carItems := parseCarEntities(carPayload, canonical, date, clock)
	bikeRows, bikeItems := parseBikeEntities(bikePayload, canonical, date, clock)

	already, err := s.store.KeysAt(date, clock)
	if err != nil {
		return fmt.Errorf("scan existing keys: %w", err)
	}
	var toAppend []history.Record
	for _, r := range append(carRows, bikeRows...) {
		if _, dup := already[history.Key{Type: r.Type, Name: r.Name}]; !dup {
			toAppend = append(toAppend, r)
		}
	}
	if err := s.store.Append(toAppend); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if err := s.refreshMetadata(now, carURL, bikeURL, carItems, bikeItems); err != nil {
		return err
	}

	snapshot := Snapshot{
		GeneratedAt: now.Format(time.RFC3339),
		Timezone:    s.cfg.Timezone,
		Sources:     map[string]string{"cars": carURL, "bikes": bikeURL},
		Cars:        carItems,
		Bikes:       bikeItems,
	}
	if err := report.WriteJSON(filepath.Join(s.cfg.OutputDir, "latest_snapshot.json"), snapshot); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.log.Info().Int("appended", len(toAppend)).
		Int("cars", len(carItems)).Int("bikes", len(bikeItems)).
		Msg("ingestion pass complete")
	return nil
}

// refreshMetadata merges freshly seen coordinates into the metadata document
// and republishes it both next to the history and into the site data dir.
func (s *Service) refreshMetadata(now time.Time, carURL, bikeURL string, carItems, bikeItems []Item) error {
	doc, err := metadata.Load(s.cfg.MetadataJSON)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	doc.GeneratedAt = now.Format(time.RFC3339)
	doc.Sources = map[string]string{"cars": carURL, "bikes": bikeURL}

	apply := func(tag string, items []Item) {
		for _, it := range items {
			if it.Name == "" {
				continue
			}
			if it.Lat == nil || it.Lon == nil {
				doc.SetIfAbsent(tag, it.Name)
				continue
			}
			doc.Set(tag, it.Name, metadata.Entry{Lat: it.Lat, Lon: it.Lon, ID: it.ID})
		}
	}
	apply(history.TypeCar, carItems)
	apply(history.TypeBike, bikeItems)

	if s.geocoder != nil {
		s.geocoder.Backfill(doc)
	}

	if err := metadata.Save(s.cfg.MetadataJSON, doc); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	// Published copy for the site.
	if err := metadata.Save(filepath.Join(s.cfg.OutputDir, "metadata.json"), doc); err != nil {
		return fmt.Errorf("publish metadata: %w", err)
	}
	return nil
}
