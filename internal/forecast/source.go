package forecast

import (
	"context"
	"errors"
	"time"
)

// ErrNoHistory reports that a location simply has no usable persisted
// rows. The engine treats it as the expected end of the fallback chain,
// not as a lookup failure.
var ErrNoHistory = errors.New("no history rows for location")

// Source abstracts the upstream forecast APIs. A Source either returns a
// complete, aligned set of raw series or an error; it never returns
// partial data.
type Source interface {
	Fetch(ctx context.Context, req Request) (RawForecast, error)
}

// History is the last-resort source of hourly records, read from
// previously persisted observations. Implementations return rows at or
// after now, ordered by time, and never invent daylight data they don't
// have.
type History interface {
	FutureHours(ctx context.Context, locationKey string, now time.Time) ([]HourlyRecord, error)
}
