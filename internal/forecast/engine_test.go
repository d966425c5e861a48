package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snorkelcast/snorkelcast/internal/cache"
)

type fakeSource struct {
	calls int
	raw   RawForecast
	err   error
}

func (f *fakeSource) Fetch(ctx context.Context, req Request) (RawForecast, error) {
	f.calls++
	if f.err != nil {
		return RawForecast{}, f.err
	}
	return f.raw, nil
}

type fakeHistory struct {
	calls   int
	records []HourlyRecord
	err     error
}

func (f *fakeHistory) FutureHours(ctx context.Context, locationKey string, now time.Time) ([]HourlyRecord, error) {
	f.calls++
	return f.records, f.err
}

// calmRaw builds five calm daylight hours with a single high tide at
// index 2, so hours 1-3 sit inside the slack window.
func calmRaw() RawForecast {
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	n := 5
	raw := RawForecast{
		Times:           make([]time.Time, n),
		WaveHeight:      make([]*float64, n),
		SeaSurfaceTemp:  make([]*float64, n),
		SeaLevel:        make([]*float64, n),
		CurrentVelocity: make([]*float64, n),
		WindSpeed:       make([]*float64, n),
		Solar: map[string]SolarDay{
			"2026-06-01": {
				Sunrise: time.Date(2026, 6, 1, 5, 0, 0, 0, time.UTC),
				Sunset:  time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC),
			},
		},
	}
	tide := []float64{1.0, 1.2, 1.5, 1.3, 1.1}
	for i := 0; i < n; i++ {
		raw.Times[i] = base.Add(time.Duration(i) * time.Hour)
		raw.WaveHeight[i] = fptr(0.05)
		raw.SeaSurfaceTemp[i] = fptr(24)
		raw.SeaLevel[i] = fptr(tide[i])
		raw.CurrentVelocity[i] = fptr(0.1)
		raw.WindSpeed[i] = fptr(0.5)
	}
	return raw
}

func newTestEngine(source Source, history History, store *cache.Tiered[[]HourlyRecord]) *Engine {
	return NewEngine(source, history, store, DefaultThresholds(), Config{})
}

func TestForecastScoresAndRates(t *testing.T) {
	source := &fakeSource{raw: calmRaw()}
	engine := newTestEngine(source, nil, cache.New[[]HourlyRecord]())

	hours, err := engine.Forecast(context.Background(), Request{Lat: 36.997, Lon: -1.896, Timezone: "UTC", Hours: 72})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hours) != 5 {
		t.Fatalf("expected 5 hours, got %d", len(hours))
	}

	// inside the slack window around the detected high tide
	peak := hours[2]
	if !peak.IsHighTide {
		t.Error("expected hour 2 to be flagged as high tide")
	}
	if !peak.SlackOK || !peak.LightOK || !peak.WaveOK || !peak.WindOK || !peak.SSTOK {
		t.Errorf("expected all flags ok at the peak hour, got %+v", peak)
	}
	if peak.Score <= 0.8 {
		t.Errorf("expected score > 0.8, got %v", peak.Score)
	}
	if peak.Rating != RatingExcellent || !peak.OK {
		t.Errorf("expected excellent/ok, got %q/%v", peak.Rating, peak.OK)
	}

	// identical metrics outside any slack window: capped to fair
	outside := hours[0]
	if outside.SlackOK {
		t.Error("expected hour 0 outside the slack window")
	}
	if outside.Rating != RatingFair || outside.OK {
		t.Errorf("expected fair/not-ok outside slack window, got %q/%v", outside.Rating, outside.OK)
	}
}

func TestFreshCacheHitSkipsUpstream(t *testing.T) {
	source := &fakeSource{raw: calmRaw()}
	engine := newTestEngine(source, nil, cache.New[[]HourlyRecord]())
	req := Request{Lat: 36.997, Lon: -1.896, Timezone: "UTC", Hours: 72}

	if _, err := engine.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", source.calls)
	}
}

func TestStaleServedWhenUpstreamFails(t *testing.T) {
	clock := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	store := cache.NewWithClock[[]HourlyRecord](func() time.Time { return clock })
	source := &fakeSource{raw: calmRaw()}
	engine := newTestEngine(source, nil, store)
	req := Request{Lat: 36.997, Lon: -1.896, Timezone: "UTC", Hours: 72}

	first, err := engine.Forecast(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// fresh expires, upstream starts failing
	clock = clock.Add(11 * time.Minute)
	source.err = errors.New("boom")

	stale, err := engine.Forecast(context.Background(), req)
	if err != nil {
		t.Fatalf("stale path must not error, got %v", err)
	}
	if len(stale) != len(first) {
		t.Fatalf("expected stale payload of %d hours, got %d", len(first), len(stale))
	}
	if source.calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", source.calls)
	}

	// negative cache: the next call inside the backoff window must not
	// touch the upstream
	if _, err := engine.Forecast(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected backoff to skip upstream, got %d calls", source.calls)
	}
}

func TestHistoryFallbackRecomputesTides(t *testing.T) {
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	tide := []float64{1.0, 1.2, 1.5, 1.3, 1.1}
	rows := make([]HourlyRecord, len(tide))
	for i := range rows {
		rows[i] = HourlyRecord{
			Time:            base.Add(time.Duration(i) * time.Hour),
			WaveHeight:      fptr(0.1),
			WindSpeed:       fptr(2.0),
			SeaSurfaceTemp:  fptr(24),
			SeaLevelHeight:  fptr(tide[i]),
			CurrentVelocity: fptr(0.1),
			LightOK:         true,
			Score:           0.65,
			Rating:          RatingGood,
			OK:              true,
		}
	}

	source := &fakeSource{err: errors.New("upstream down")}
	history := &fakeHistory{records: rows}
	engine := newTestEngine(source, history, cache.New[[]HourlyRecord]())

	hours, err := engine.Forecast(context.Background(), Request{
		Lat: 36.997, Lon: -1.896, Timezone: "UTC", Hours: 72,
		LocationKey: "spain/carboneras",
	})
	if err != nil {
		t.Fatalf("history path must not error, got %v", err)
	}
	if history.calls != 1 {
		t.Fatalf("expected 1 history lookup, got %d", history.calls)
	}
	if len(hours) != len(rows) {
		t.Fatalf("expected %d hours, got %d", len(rows), len(hours))
	}

	if !hours[2].IsHighTide {
		t.Error("expected recomputed high tide at index 2")
	}
	if !hours[2].SlackOK {
		t.Error("expected recomputed slack flag at the peak")
	}
	if hours[0].SlackOK {
		t.Error("expected no slack flag outside the window")
	}
	// stored score/rating are reused, not recomputed
	if hours[2].Rating != RatingGood || hours[2].Score != 0.65 {
		t.Errorf("expected stored rating/score untouched, got %q/%v", hours[2].Rating, hours[2].Score)
	}
	// the daylight approximation is explicit: always true, no solar times
	if !hours[2].LightOK || hours[2].Sunrise != nil || hours[2].Sunset != nil {
		t.Error("expected LightOK=true with nil sunrise/sunset from history")
	}
}

func TestHistoryErrorsCollapseToEmpty(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"no rows", ErrNoHistory},
		{"lookup failure", errors.New("disk on fire")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{err: errors.New("upstream down")}
			history := &fakeHistory{err: tc.err}
			engine := newTestEngine(source, history, cache.New[[]HourlyRecord]())

			hours, err := engine.Forecast(context.Background(), Request{
				Lat: 1, Lon: 1, Timezone: "UTC", LocationKey: "spain/carboneras",
			})
			if err != nil {
				t.Fatalf("history trouble must not surface as an error, got %v", err)
			}
			if len(hours) != 0 {
				t.Fatalf("expected empty forecast, got %d hours", len(hours))
			}
			if history.calls != 1 {
				t.Fatalf("expected 1 history lookup, got %d", history.calls)
			}
		})
	}
}

func TestEmptyWhenFallbackChainExhausted(t *testing.T) {
	source := &fakeSource{err: errors.New("upstream down")}
	engine := newTestEngine(source, nil, cache.New[[]HourlyRecord]())

	hours, err := engine.Forecast(context.Background(), Request{Lat: 1, Lon: 1, Timezone: "UTC"})
	if err != nil {
		t.Fatalf("exhausted chain must not error, got %v", err)
	}
	if len(hours) != 0 {
		t.Fatalf("expected empty forecast, got %d hours", len(hours))
	}
}

func TestContractViolationsFailLoudly(t *testing.T) {
	engine := newTestEngine(&fakeSource{}, nil, cache.New[[]HourlyRecord]())

	cases := []Request{
		{Lat: 91, Lon: 0, Timezone: "UTC"},
		{Lat: 0, Lon: -181, Timezone: "UTC"},
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0, Timezone: "Not/AZone"},
		{Lat: 0, Lon: 0, Timezone: "UTC", Hours: -1},
	}
	for _, req := range cases {
		if _, err := engine.Forecast(context.Background(), req); err == nil {
			t.Errorf("expected error for request %+v", req)
		}
	}
}
