package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

func fptr(v float64) *float64 { return &v }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndFutureHoursRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := []forecast.HourlyRecord{
		{Time: base.Add(-1 * time.Hour), Score: 0.3, Rating: forecast.RatingPoor},
		{
			Time:            base,
			WaveHeight:      fptr(0.2),
			WindSpeed:       fptr(3.0),
			SeaSurfaceTemp:  fptr(24.0),
			SeaLevelHeight:  fptr(1.2),
			CurrentVelocity: fptr(0.1),
			Score:           0.65,
			Rating:          forecast.RatingGood,
			OK:              true,
		},
		{Time: base.Add(1 * time.Hour), Score: 0.5, Rating: forecast.RatingFair},
	}
	if err := store.Save(ctx, "spain/carboneras", rows); err != nil {
		t.Fatalf("saving rows: %v", err)
	}

	got, err := store.FutureHours(ctx, "spain/carboneras", base)
	if err != nil {
		t.Fatalf("reading future hours: %v", err)
	}
	// past row dropped, present row kept
	if len(got) != 2 {
		t.Fatalf("expected 2 future-or-present rows, got %d", len(got))
	}
	if !got[0].Time.Equal(base) || !got[1].Time.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected rows ordered by time, got %v then %v", got[0].Time, got[1].Time)
	}

	first := got[0]
	if first.Rating != forecast.RatingGood || first.Score != 0.65 || !first.OK {
		t.Errorf("stored rating/score/ok not preserved: %+v", first)
	}
	if first.WaveHeight == nil || *first.WaveHeight != 0.2 {
		t.Errorf("expected wave 0.2, got %v", first.WaveHeight)
	}
	if got[1].WaveHeight != nil {
		t.Errorf("expected nil wave for sparse row, got %v", *got[1].WaveHeight)
	}

	// daylight is not reconstructable from storage
	for _, r := range got {
		if !r.LightOK || r.Sunrise != nil || r.Sunset != nil {
			t.Errorf("expected LightOK=true with nil sunrise/sunset, got %+v", r)
		}
	}
}

func TestSaveIgnoresDuplicateHours(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := []forecast.HourlyRecord{
		{Time: base, Score: 0.5, Rating: forecast.RatingFair},
		{Time: base.Add(time.Hour), Score: 0.6, Rating: forecast.RatingGood},
	}
	if err := store.Save(ctx, "greece/zakynthos", rows); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, "greece/zakynthos", rows); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.FutureHours(ctx, "greece/zakynthos", base)
	if err != nil {
		t.Fatalf("reading future hours: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected duplicates ignored, got %d rows", len(got))
	}
}

func TestFutureHoursNoRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	if _, err := store.FutureHours(ctx, "nowhere/at-all", now); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows for unknown location, got %v", err)
	}
	if _, err := store.FutureHours(ctx, "", now); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows for empty location key, got %v", err)
	}
}

func TestRowsAreScopedByLocation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := []forecast.HourlyRecord{{Time: base, Score: 0.5, Rating: forecast.RatingFair}}
	if err := store.Save(ctx, "spain/carboneras", rows); err != nil {
		t.Fatalf("saving rows: %v", err)
	}

	if _, err := store.FutureHours(ctx, "turkey/kas", base); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows for other location, got %v", err)
	}
}
