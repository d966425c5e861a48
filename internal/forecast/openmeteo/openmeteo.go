// Package openmeteo adapts the Open-Meteo marine and weather APIs into
// the aligned raw hourly series the forecast engine scores.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

const (
	defaultMarineURL  = "https://marine-api.open-meteo.com/v1/marine"
	defaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

	hourLayout = "2006-01-02T15:04"
)

// Client fetches the two Open-Meteo endpoints for one coordinate. Each
// endpoint gets its own circuit breaker: a marine outage must not trip
// the weather side.
type Client struct {
	marineURL  string
	weatherURL string
	httpClient *http.Client
	retry      RetryConfig
	marineCB   *gobreaker.CircuitBreaker
	weatherCB  *gobreaker.CircuitBreaker
}

// NewClient creates a Client using the shared outbound HTTP client, which
// carries the per-call timeout.
func NewClient(httpClient *http.Client) *Client {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}
	}
	return &Client{
		marineURL:  defaultMarineURL,
		weatherURL: defaultWeatherURL,
		httpClient: httpClient,
		retry: RetryConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		marineCB:  gobreaker.NewCircuitBreaker(settings("openmeteo-marine")),
		weatherCB: gobreaker.NewCircuitBreaker(settings("openmeteo-weather")),
	}
}

type marinePayload struct {
	Hourly struct {
		Time                  []string   `json:"time"`
		WaveHeight            []*float64 `json:"wave_height"`
		SeaSurfaceTemperature []*float64 `json:"sea_surface_temperature"`
		SeaLevelHeightMSL     []*float64 `json:"sea_level_height_msl"`
		OceanCurrentVelocity  []*float64 `json:"ocean_current_velocity"`
	} `json:"hourly"`
}

type weatherPayload struct {
	Hourly struct {
		Time         []string   `json:"time"`
		WindSpeed10M []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// Fetch issues both upstream calls concurrently and zips the responses
// into one RawForecast. Any failure on either side (transport, status,
// malformed body, misaligned series) fails the whole fetch; corrupt
// partial data never reaches scoring.
func (c *Client) Fetch(ctx context.Context, req forecast.Request) (forecast.RawForecast, error) {
	hours := req.Hours
	if hours <= 0 {
		hours = forecast.DefaultHorizon
	}

	var marine marinePayload
	var weather weatherPayload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := baseQuery(req, hours)
		query.Set("hourly", "wave_height,sea_surface_temperature,sea_level_height_msl,ocean_current_velocity")
		return c.fetchJSON(gctx, c.marineURL, query, c.marineCB, &marine)
	})
	g.Go(func() error {
		query := baseQuery(req, hours)
		query.Set("hourly", "wind_speed_10m")
		query.Set("daily", "sunrise,sunset")
		return c.fetchJSON(gctx, c.weatherURL, query, c.weatherCB, &weather)
	})
	if err := g.Wait(); err != nil {
		return forecast.RawForecast{}, err
	}

	return normalize(marine, weather)
}

func baseQuery(req forecast.Request, hours int) url.Values {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	query.Set("timezone", "UTC")
	query.Set("past_hours", "0")
	query.Set("forecast_hours", strconv.Itoa(hours))
	return query
}

func (c *Client) fetchJSON(ctx context.Context, baseURL string, query url.Values, cb *gobreaker.CircuitBreaker, target interface{}) error {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, baseURL+"?"+query.Encode(), nil)
	}

	resp, err := doWithResilience(ctx, c.httpClient, c.retry, cb, buildRequest)
	if err != nil {
		return fmt.Errorf("%s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%s: decoding response: %w", baseURL, err)
	}
	return nil
}

// normalize validates the two payloads against the identical-timestamps
// assumption and assembles the raw series. Required series must match
// the time array exactly; sea level and current velocity are optional
// because Open-Meteo omits them for some coordinates.
func normalize(marine marinePayload, weather weatherPayload) (forecast.RawForecast, error) {
	if len(marine.Hourly.Time) == 0 {
		return forecast.RawForecast{}, fmt.Errorf("marine api: empty time series")
	}

	times := make([]time.Time, len(marine.Hourly.Time))
	for i, s := range marine.Hourly.Time {
		ts, err := time.Parse(hourLayout, s)
		if err != nil {
			return forecast.RawForecast{}, fmt.Errorf("marine api: bad time %q: %w", s, err)
		}
		times[i] = ts.UTC()
	}
	n := len(times)

	if err := requireAligned("wave_height", len(marine.Hourly.WaveHeight), n); err != nil {
		return forecast.RawForecast{}, err
	}
	if err := requireAligned("sea_surface_temperature", len(marine.Hourly.SeaSurfaceTemperature), n); err != nil {
		return forecast.RawForecast{}, err
	}
	if err := requireAligned("wind_speed_10m", len(weather.Hourly.WindSpeed10M), n); err != nil {
		return forecast.RawForecast{}, err
	}

	solar, err := solarMap(weather)
	if err != nil {
		return forecast.RawForecast{}, err
	}

	return forecast.RawForecast{
		Times:           times,
		WaveHeight:      marine.Hourly.WaveHeight,
		SeaSurfaceTemp:  marine.Hourly.SeaSurfaceTemperature,
		SeaLevel:        optionalSeries(marine.Hourly.SeaLevelHeightMSL, n),
		CurrentVelocity: optionalSeries(marine.Hourly.OceanCurrentVelocity, n),
		WindSpeed:       weather.Hourly.WindSpeed10M,
		Solar:           solar,
	}, nil
}

func solarMap(weather weatherPayload) (map[string]forecast.SolarDay, error) {
	daily := weather.Daily
	if len(daily.Sunrise) != len(daily.Time) || len(daily.Sunset) != len(daily.Time) {
		return nil, fmt.Errorf("weather api: daily sunrise/sunset arrays (%d/%d) misaligned with time array (%d)",
			len(daily.Sunrise), len(daily.Sunset), len(daily.Time))
	}

	solar := make(map[string]forecast.SolarDay, len(daily.Time))
	for i, day := range daily.Time {
		sunrise, err := time.Parse(hourLayout, daily.Sunrise[i])
		if err != nil {
			return nil, fmt.Errorf("weather api: bad sunrise %q: %w", daily.Sunrise[i], err)
		}
		sunset, err := time.Parse(hourLayout, daily.Sunset[i])
		if err != nil {
			return nil, fmt.Errorf("weather api: bad sunset %q: %w", daily.Sunset[i], err)
		}
		solar[day] = forecast.SolarDay{
			Sunrise: sunrise.UTC(),
			Sunset:  sunset.UTC(),
		}
	}
	return solar, nil
}

func requireAligned(field string, got, want int) error {
	if got != want {
		return fmt.Errorf("upstream field %s has %d values, time array has %d", field, got, want)
	}
	return nil
}

// optionalSeries pads or truncates an optional series to n entries so
// downstream indexing is safe; a fully absent series becomes all nils.
func optionalSeries(vals []*float64, n int) []*float64 {
	if len(vals) == n {
		return vals
	}
	out := make([]*float64, n)
	copy(out, vals)
	return out
}
