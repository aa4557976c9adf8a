package metadata

import (
	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"
)

// Geocoder backfills coordinates for entities the upstream feed returned
// without a location, by geocoding their street name within the configured
// city. It needs a Google API key; without one it is simply not constructed.
type Geocoder struct {
	city    string
	country string
	log     zerolog.Logger
}

// NewGeocoder configures the shared geocoder API key and returns a backfiller
// scoped to one city.
func NewGeocoder(apiKey, city, country string, log zerolog.Logger) *Geocoder {
	geocoder.ApiKey = apiKey
	return &Geocoder{city: city, country: country, log: log}
}

// Backfill fills in coordinates for every entry in doc that has none.
// Failures are logged and skipped; a missing position is a degraded state,
// not an error.
func (g *Geocoder) Backfill(doc *Document) {
	for tag, entries := range map[string]map[string]Entry{"Voiture": doc.Cars, "Velo": doc.Bikes} {
		for name, e := range entries {
			if e.Lat != nil && e.Lon != nil {
				continue
			}
			loc, err := geocoder.Geocoding(geocoder.Address{
				Street:  name,
				City:    g.city,
				Country: g.country,
			})
			if err != nil {
				g.log.Debug().Str("type", tag).Str("name", name).Err(err).Msg("geocoding failed")
				continue
			}
			lat, lon := loc.Latitude, loc.Longitude
			e.Lat = &lat
			e.Lon = &lon
			entries[name] = e
			g.log.Info().Str("type", tag).Str("name", name).
				Float64("lat", lat).Float64("lon", lon).Msg("backfilled coordinates")
		}
	}
}
