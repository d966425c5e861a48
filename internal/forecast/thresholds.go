package forecast

import "time"

// Thresholds are the static bounds that define acceptable snorkeling
// conditions. A Thresholds value is immutable for the lifetime of the
// components it is passed to; cached payloads scored under older bounds
// are never rescored.
type Thresholds struct {
	WaveHeightMax      float64       // m
	WindSpeedMax       float64       // m/s
	SSTMin             float64       // °C
	SSTMax             float64       // °C
	CurrentVelocityMax float64       // m/s
	SlackWindow        time.Duration // around each high tide, either direction
}

// DefaultThresholds returns the standard policy: calm Mediterranean
// snorkeling conditions.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WaveHeightMax:      0.3,
		WindSpeedMax:       4.5, // ~10 mph
		SSTMin:             22,
		SSTMax:             29,
		CurrentVelocityMax: 0.3,
		SlackWindow:        60 * time.Minute,
	}
}
