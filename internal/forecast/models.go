package forecast

import (
	"time"
)

// Rating is a coarse bucketing of the continuous snorkel score,
// adjusted by tide safety.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// OK reports whether the rating counts as snorkelable.
func (r Rating) OK() bool {
	return r == RatingExcellent || r == RatingGood
}

// Spot represents a snorkeling location we track.
// Slugs must be provided; coordinates and timezone come from the catalogue
// or from geocoding at startup.
type Spot struct {
	CountrySlug string  `json:"country"`
	CitySlug    string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

// Key returns a canonical string key for indexing this spot in stores.
func (s Spot) Key() string {
	return s.CountrySlug + "/" + s.CitySlug
}

// Request identifies one forecast fetch: where, how far ahead, and which
// timezone the returned hours should be expressed in. LocationKey is
// optional and only enables the history fallback.
type Request struct {
	Lat         float64
	Lon         float64
	Timezone    string
	Hours       int // forecast horizon; 0 means DefaultHorizon
	LocationKey string
}

// HourlyRecord is one hour of scored, tide-annotated conditions.
// Metric fields are nil when the upstream series had no value for that
// hour; an absent metric always yields a zero score and a false flag.
// Records are immutable once built and only ever replaced by a newer fetch.
type HourlyRecord struct {
	Time time.Time `json:"time"`

	WaveHeight      *float64 `json:"waveHeight"`
	WindSpeed       *float64 `json:"windSpeed"`
	SeaSurfaceTemp  *float64 `json:"seaSurfaceTemperature"`
	SeaLevelHeight  *float64 `json:"seaLevelHeight"`
	CurrentVelocity *float64 `json:"currentVelocity"`

	WaveOK  bool `json:"waveOk"`
	WindOK  bool `json:"windOk"`
	SSTOK   bool `json:"sstOk"`
	SlackOK bool `json:"slackOk"`
	LightOK bool `json:"lightOk"`

	IsHighTide bool    `json:"isHighTide"`
	Score      float64 `json:"score"`
	Rating     Rating  `json:"rating"`
	OK         bool    `json:"ok"`

	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`
}

// SolarDay holds sunrise and sunset for one calendar day.
type SolarDay struct {
	Sunrise time.Time
	Sunset  time.Time
}

// RawForecast is the adapter's normalized output: index-aligned hourly
// series in UTC plus sunrise/sunset keyed by UTC calendar date
// ("2006-01-02"). WaveHeight, SeaSurfaceTemp and WindSpeed always match
// Times in length; SeaLevel and CurrentVelocity are padded with nils when
// the upstream omits them.
type RawForecast struct {
	Times           []time.Time
	WaveHeight      []*float64
	SeaSurfaceTemp  []*float64
	SeaLevel        []*float64
	CurrentVelocity []*float64
	WindSpeed       []*float64
	Solar           map[string]SolarDay
}
