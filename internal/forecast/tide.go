package forecast

import "time"

// HighTideIndices finds local maxima in a time-ordered sea-level series.
// An interior index is a high tide when its own level and both neighbours
// are present and it is strictly greater than both. No smoothing is
// applied; upstream hourly granularity keeps the series coarse enough.
// Fewer than three points yields no high tides.
func HighTideIndices(levels []*float64) []int {
	var peaks []int
	for i := 1; i+1 < len(levels); i++ {
		prev, curr, next := levels[i-1], levels[i], levels[i+1]
		if prev == nil || curr == nil || next == nil {
			continue
		}
		if *curr > *prev && *curr > *next {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// SlackMask marks every hour within window of any high tide, in either
// direction. Overlapping windows union.
func SlackMask(times []time.Time, highTides []time.Time, window time.Duration) []bool {
	mask := make([]bool, len(times))
	for i, t := range times {
		for _, ht := range highTides {
			d := t.Sub(ht)
			if d < 0 {
				d = -d
			}
			if d <= window {
				mask[i] = true
				break
			}
		}
	}
	return mask
}
