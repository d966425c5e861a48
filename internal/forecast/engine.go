package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/snorkelcast/snorkelcast/internal/cache"
)

// DefaultHorizon is the forecast horizon used when a request does not
// specify one.
const DefaultHorizon = 72

// cacheVersion tags cache keys so a change to the payload shape or the
// scoring algorithm never serves records produced by older code.
const cacheVersion = "v1"

// Config carries the cache tier TTLs. Zero values fall back to the
// defaults below.
type Config struct {
	FreshTTL    time.Duration
	StaleTTL    time.Duration
	NegativeTTL time.Duration
}

const (
	defaultFreshTTL    = 600 * time.Second
	defaultStaleTTL    = 43200 * time.Second
	defaultNegativeTTL = 120 * time.Second
)

// Engine is the single public entry point for forecasts. It chains the
// cache tiers, the upstream source and the history fallback so that a
// caller always gets a (possibly empty) ordered sequence of hours, never
// an error for ordinary upstream trouble.
type Engine struct {
	source     Source
	history    History // may be nil
	store      *cache.Tiered[[]HourlyRecord]
	thresholds Thresholds
	cfg        Config
	now        func() time.Time
}

// NewEngine creates an Engine. history may be nil, which disables the
// fallback tier.
func NewEngine(source Source, history History, store *cache.Tiered[[]HourlyRecord], th Thresholds, cfg Config) *Engine {
	if cfg.FreshTTL <= 0 {
		cfg.FreshTTL = defaultFreshTTL
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = defaultStaleTTL
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = defaultNegativeTTL
	}
	return &Engine{
		source:     source,
		history:    history,
		store:      store,
		thresholds: th,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Forecast returns the scored hourly forecast for the request. Upstream
// failures degrade through stale cache and history to an empty slice; an
// error is returned only for contract violations in the request itself.
func (e *Engine) Forecast(ctx context.Context, req Request) ([]HourlyRecord, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", req.Timezone, err)
	}
	if req.Hours == 0 {
		req.Hours = DefaultHorizon
	}

	key := cacheKey(req)

	if e.store.InBackoff(key) {
		if records, ok := e.store.Stale(key); ok {
			log.Printf("forecast: %s in backoff, serving stale copy", key)
			return records, nil
		}
		log.Printf("forecast: %s in backoff with no stale copy, trying history", key)
		return e.fromHistory(ctx, req, loc), nil
	}

	if records, ok := e.store.Fresh(key); ok {
		return records, nil
	}

	raw, err := e.source.Fetch(ctx, req)
	if err != nil {
		log.Printf("forecast: upstream fetch failed for %s: %v", key, err)
		e.store.SetBackoff(key, e.cfg.NegativeTTL)
		if records, ok := e.store.Stale(key); ok {
			log.Printf("forecast: serving stale copy for %s", key)
			return records, nil
		}
		log.Printf("forecast: no stale copy for %s, trying history", key)
		return e.fromHistory(ctx, req, loc), nil
	}

	records := BuildRecords(raw, e.thresholds, loc)
	e.store.Put(key, records, e.cfg.FreshTTL, e.cfg.StaleTTL)
	return records, nil
}

// fromHistory is the end of the fallback chain. It never fails: anything
// that goes wrong here is logged and collapses to an empty forecast.
func (e *Engine) fromHistory(ctx context.Context, req Request, loc *time.Location) []HourlyRecord {
	if e.history == nil || req.LocationKey == "" {
		log.Printf("forecast: history fallback unavailable for %s (no store or location key)", cacheKey(req))
		return nil
	}

	records, err := e.history.FutureHours(ctx, req.LocationKey, e.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			log.Printf("forecast: no history rows for %s", req.LocationKey)
		} else {
			log.Printf("forecast: history lookup failed for %s: %v", req.LocationKey, err)
		}
		return nil
	}
	if len(records) == 0 {
		log.Printf("forecast: no history rows for %s", req.LocationKey)
		return nil
	}

	for i := range records {
		records[i].Time = records[i].Time.In(loc)
	}
	log.Printf("forecast: serving %d history rows for %s", len(records), req.LocationKey)
	return AnnotateHistory(records, e.thresholds)
}

func validateRequest(req Request) error {
	if req.Lat < -90 || req.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", req.Lat)
	}
	if req.Lon < -180 || req.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", req.Lon)
	}
	if req.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if req.Hours < 0 {
		return fmt.Errorf("horizon must be positive, got %d", req.Hours)
	}
	return nil
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s:%.4f,%.4f:%dh:%s", cacheVersion, req.Lat, req.Lon, req.Hours, req.Timezone)
}
