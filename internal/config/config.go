package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

type AppConfig struct {
	Port string

	// HTTPTimeout bounds each outbound upstream call.
	HTTPTimeout time.Duration

	// Cache tier TTLs.
	FreshTTL    time.Duration
	StaleTTL    time.Duration
	NegativeTTL time.Duration

	// HistoryDBPath is the sqlite file backing the history fallback.
	// Empty disables history entirely.
	HistoryDBPath string

	// Scheduler sweep over the spot catalogue.
	SchedulerInterval time.Duration
	SchedulerEnabled  bool

	GeocoderAPIKey string

	// Spots to sweep and to resolve history location keys against.
	Spots []forecast.Spot
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.HistoryDBPath = getenvDefault("HISTORY_DB_PATH", "data/snorkelcast.db")
	cfg.SchedulerEnabled = getenvBool("ENABLE_SCHEDULER", true)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FreshTTL, err = getenvDuration("CACHE_FRESH_TTL", 600*time.Second); err != nil {
		return nil, err
	}
	if cfg.StaleTTL, err = getenvDuration("CACHE_STALE_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.NegativeTTL, err = getenvDuration("CACHE_NEGATIVE_TTL", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.SchedulerInterval, err = getenvDuration("SCHEDULER_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}

	spots, err := loadSpots(cfg.GeocoderAPIKey)
	if err != nil {
		return nil, err
	}
	cfg.Spots = spots

	return cfg, nil
}

// defaultSpots is the built-in catalogue used when SPOTS is not set.
func defaultSpots() []forecast.Spot {
	return []forecast.Spot{
		{CountrySlug: "spain", CitySlug: "carboneras", Lat: 36.997, Lon: -1.896, Timezone: "Europe/Madrid"},
		{CountrySlug: "greece", CitySlug: "zakynthos", Lat: 37.7900, Lon: 20.7334, Timezone: "Europe/Athens"},
		{CountrySlug: "greece", CitySlug: "santorini", Lat: 36.3932, Lon: 25.4615, Timezone: "Europe/Athens"},
		{CountrySlug: "turkey", CitySlug: "kas", Lat: 36.2025, Lon: 29.6367, Timezone: "Europe/Istanbul"},
		{CountrySlug: "croatia", CitySlug: "dubrovnik", Lat: 42.6507, Lon: 18.0944, Timezone: "Europe/Zagreb"},
		{CountrySlug: "usa", CitySlug: "maui", Lat: 20.7984, Lon: -156.3319, Timezone: "Pacific/Honolulu"},
	}
}

// spotSpec is a parsed SPOTS entry that may still be missing coordinates.
type spotSpec struct {
	spot         forecast.Spot
	needsGeocode bool
}

func loadSpots(geocoderKey string) ([]forecast.Spot, error) {
	raw := os.Getenv("SPOTS")
	if raw == "" {
		return defaultSpots(), nil
	}

	specs, err := parseSpots(raw)
	if err != nil {
		return nil, err
	}

	spots := make([]forecast.Spot, 0, len(specs))
	for _, spec := range specs {
		if spec.needsGeocode {
			if geocoderKey == "" {
				return nil, fmt.Errorf("spot %s has no coordinates and GEOCODER_API_KEY is not set", spec.spot.Key())
			}
			geocoder.ApiKey = geocoderKey
			location, err := geocoder.Geocoding(geocoder.Address{
				City:    spec.spot.CitySlug,
				Country: spec.spot.CountrySlug,
			})
			if err != nil {
				return nil, fmt.Errorf("geocoding spot %s: %w", spec.spot.Key(), err)
			}
			spec.spot.Lat = location.Latitude
			spec.spot.Lon = location.Longitude
			log.Printf("INFO: geocoded %s to %.4f,%.4f", spec.spot.Key(), spec.spot.Lat, spec.spot.Lon)
		}
		spots = append(spots, spec.spot)
	}
	return spots, nil
}

// parseSpots parses the SPOTS env value: semicolon-separated entries of
// the form "country/city=lat,lon,timezone" or "country/city=timezone"
// (coordinates resolved via the geocoder at startup).
func parseSpots(raw string) ([]spotSpec, error) {
	var specs []spotSpec
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("invalid SPOTS entry %q: missing '='", entry)
		}
		country, city, found := strings.Cut(key, "/")
		if !found || country == "" || city == "" {
			return nil, fmt.Errorf("invalid SPOTS entry %q: key must be country/city", entry)
		}

		spec := spotSpec{spot: forecast.Spot{
			CountrySlug: strings.TrimSpace(country),
			CitySlug:    strings.TrimSpace(city),
		}}

		parts := strings.Split(value, ",")
		switch len(parts) {
		case 1:
			spec.spot.Timezone = strings.TrimSpace(parts[0])
			spec.needsGeocode = true
		case 3:
			lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid SPOTS entry %q: bad latitude: %w", entry, err)
			}
			lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid SPOTS entry %q: bad longitude: %w", entry, err)
			}
			spec.spot.Lat = lat
			spec.spot.Lon = lon
			spec.spot.Timezone = strings.TrimSpace(parts[2])
		default:
			return nil, fmt.Errorf("invalid SPOTS entry %q: want timezone or lat,lon,timezone", entry)
		}

		if spec.spot.Timezone == "" {
			return nil, fmt.Errorf("invalid SPOTS entry %q: missing timezone", entry)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("SPOTS is set but contains no entries")
	}
	return specs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func getenvBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
