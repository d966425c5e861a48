package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

// Saver persists a sweep's hourly records; the history store satisfies it.
type Saver interface {
	Save(ctx context.Context, locationKey string, hours []forecast.HourlyRecord) error
}

// Scheduler periodically fetches the forecast for every catalogued spot
// and persists the hours, building the history the fallback reads from.
type Scheduler struct {
	scheduler *gocron.Scheduler
	engine    *forecast.Engine
	history   Saver // may be nil
	spots     []forecast.Spot
	interval  time.Duration
}

// New creates a Scheduler. history may be nil, in which case sweeps still
// warm the cache but persist nothing.
func New(spots []forecast.Spot, interval time.Duration, engine *forecast.Engine, history Saver) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		engine:    engine,
		history:   history,
		spots:     spots,
		interval:  interval,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.spots) == 0 {
		log.Println("scheduler: no spots configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running forecast sweep")

		var wg sync.WaitGroup
		for _, spot := range s.spots {
			spot := spot
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				hours, err := s.engine.Forecast(ctx, forecast.Request{
					Lat:         spot.Lat,
					Lon:         spot.Lon,
					Timezone:    spot.Timezone,
					LocationKey: spot.Key(),
				})
				if err != nil {
					log.Printf("scheduler: forecast failed for %s: %v", spot.Key(), err)
					return
				}
				if len(hours) == 0 {
					log.Printf("scheduler: empty forecast for %s; nothing to persist", spot.Key())
					return
				}

				if s.history != nil {
					if err := s.history.Save(ctx, spot.Key(), hours); err != nil {
						log.Printf("scheduler: saving history failed for %s: %v", spot.Key(), err)
					}
				}
			}()
		}
		wg.Wait()
		log.Println("scheduler: completed forecast sweep")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
