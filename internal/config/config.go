package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/parking-data-aggregation/internal/analysis"
	"github.com/i474232898/parking-data-aggregation/internal/series"
)

// AppConfig is the full runtime configuration, read once at startup.
type AppConfig struct {
	// File locations.
	HistoryCSV   string
	MetadataJSON string
	// OutputDir receives the JSON artifacts the static site reads
	// (correlations_<days>.json, saturation_<days>d.json, snapshot,
	// published metadata).
	OutputDir string

	// Upstream endpoints, in fallback order.
	CarParkingURLs  []string
	BikeStationURLs []string
	HTTPTimeout     time.Duration

	// FetchInterval controls how often the scheduler runs ingest+analyze.
	FetchInterval time.Duration

	// Timezone stamps newly ingested rows (history comparison itself is
	// naive; this only controls what gets written).
	Timezone string

	// Optional Google API key for geocoding entities that arrive without
	// coordinates, plus the city scope for those lookups.
	GeocoderAPIKey string
	GeocodeCity    string
	GeocodeCountry string

	Port string

	// Analysis carries every engine threshold.
	Analysis analysis.Config
}

// Load reads configuration from the environment with the production
// defaults. A .env file is honored when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on actual environment variables")
	}

	cfg := &AppConfig{
		HistoryCSV:      getenvDefault("HISTORY_CSV", "data/historique_parkings.csv"),
		MetadataJSON:    getenvDefault("METADATA_JSON", "data/metadata.json"),
		OutputDir:       getenvDefault("OUTPUT_DIR", "docs/data"),
		CarParkingURLs:  splitList(getenvDefault("CAR_PARKING_URLS", defaultCarURLs)),
		BikeStationURLs: splitList(getenvDefault("BIKE_STATION_URLS", defaultBikeURLs)),
		Timezone:        getenvDefault("TIMEZONE", "Europe/Paris"),
		GeocoderAPIKey:  os.Getenv("GEOCODER_API_KEY"),
		GeocodeCity:     getenvDefault("GEOCODE_CITY", "Montpellier"),
		GeocodeCountry:  getenvDefault("GEOCODE_COUNTRY", "France"),
		Port:            getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 25*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	a := analysis.DefaultConfig()
	switch mode := series.Mode(getenvDefault("ANALYSIS_MODE", string(series.ModeOccupancy))); mode {
	case series.ModeOccupancy, series.ModeFreeDelta:
		a.Mode = mode
	default:
		return nil, fmt.Errorf("invalid ANALYSIS_MODE %q", mode)
	}
	if a.LookbackDays, err = getenvIntList("LOOKBACK_DAYS", a.LookbackDays); err != nil {
		return nil, err
	}
	a.MinCommonPoints = getenvInt("MIN_COMMON_POINTS", a.MinCommonPoints)
	a.DistanceWeightKm = getenvFloat("DISTANCE_WEIGHT_KM", a.DistanceWeightKm)
	a.MaxDistanceKm = getenvFloat("MAX_DISTANCE_KM", a.MaxDistanceKm)
	a.MinAbsCorrelation = getenvFloat("MIN_ABS_CORRELATION", a.MinAbsCorrelation)
	a.TopNPairs = getenvInt("TOP_N_PAIRS", a.TopNPairs)
	a.SaturationLookbackDays = getenvInt("SAT_LOOKBACK_DAYS", a.SaturationLookbackDays)
	a.SaturationThreshold = getenvFloat("SAT_THRESHOLD", a.SaturationThreshold)
	cfg.Analysis = a

	return cfg, nil
}

const (
	defaultCarURLs = "https://portail-api-data.montpellier3m.fr/offstreetparking?limit=1000," +
		"https://portail-api-data.montpellier3m.fr/parkingspaces?limit=1000"
	defaultBikeURLs = "https://portail-api-data.montpellier3m.fr/bikestation?limit=1000"
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvIntList(key string, def []int) ([]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	var out []int
	for _, part := range splitList(v) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
