package forecast

import "math"

// Score maps one hour's metrics and daylight flag to a suitability score
// in [0,1]. It returns 0 when there is no daylight or when any metric is
// absent (the hour cannot be assessed). Otherwise each metric is
// normalised to a 0-1 sub-score and the final score is their product, so
// a single poor metric zeroes the result.
func (t Thresholds) Score(wave, wind, sst *float64, lightOK bool) float64 {
	if !lightOK || wave == nil || wind == nil || sst == nil {
		return 0.0
	}

	waveScore := math.Max(0, 1-*wave/(t.WaveHeightMax*2))
	windScore := math.Max(0, 1-*wind/(t.WindSpeedMax*2))

	// SST score is 1 inside the ideal range and decays linearly outside,
	// reaching 0 at 5°C past the nearest bound.
	var sstScore float64
	switch {
	case *sst >= t.SSTMin && *sst <= t.SSTMax:
		sstScore = 1.0
	case *sst < t.SSTMin:
		sstScore = math.Max(0, 1-(t.SSTMin-*sst)/5)
	default:
		sstScore = math.Max(0, 1-(*sst-t.SSTMax)/5)
	}

	return waveScore * windScore * sstScore
}

// RatingFromScore buckets a score into a rating tier. Outside a slack
// window the excellent and good tiers are capped down to fair: tide
// safety overrides an otherwise good score but never demotes an already
// fair or poor hour.
func RatingFromScore(score float64, slackOK bool) Rating {
	var r Rating
	switch {
	case score >= 0.8:
		r = RatingExcellent
	case score >= 0.6:
		r = RatingGood
	case score >= 0.4:
		r = RatingFair
	default:
		r = RatingPoor
	}
	if !slackOK && r.OK() {
		return RatingFair
	}
	return r
}
