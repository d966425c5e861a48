package forecast

import "time"

const solarDateLayout = "2006-01-02"

// BuildRecords zips the adapter's aligned raw series into scored,
// tide-annotated hourly records expressed in loc's timezone.
func BuildRecords(raw RawForecast, th Thresholds, loc *time.Location) []HourlyRecord {
	peaks := HighTideIndices(raw.SeaLevel)
	highSet := make(map[int]bool, len(peaks))
	highTides := make([]time.Time, 0, len(peaks))
	for _, i := range peaks {
		highSet[i] = true
		highTides = append(highTides, raw.Times[i])
	}
	inWindow := SlackMask(raw.Times, highTides, th.SlackWindow)

	records := make([]HourlyRecord, 0, len(raw.Times))
	for i, ts := range raw.Times {
		wave := seriesAt(raw.WaveHeight, i)
		sst := seriesAt(raw.SeaSurfaceTemp, i)
		wind := seriesAt(raw.WindSpeed, i)
		level := seriesAt(raw.SeaLevel, i)
		current := seriesAt(raw.CurrentVelocity, i)

		var sunrise, sunset *time.Time
		lightOK := false
		if day, ok := raw.Solar[ts.UTC().Format(solarDateLayout)]; ok {
			sr := day.Sunrise.In(loc)
			ss := day.Sunset.In(loc)
			sunrise, sunset = &sr, &ss
			lightOK = !ts.Before(day.Sunrise) && !ts.After(day.Sunset)
		}

		slackOK := inWindow[i] && current != nil && *current <= th.CurrentVelocityMax
		score := th.Score(wave, wind, sst, lightOK)
		rating := RatingFromScore(score, slackOK)

		records = append(records, HourlyRecord{
			Time:            ts.In(loc),
			WaveHeight:      wave,
			WindSpeed:       wind,
			SeaSurfaceTemp:  sst,
			SeaLevelHeight:  level,
			CurrentVelocity: current,
			WaveOK:          wave != nil && *wave <= th.WaveHeightMax,
			WindOK:          wind != nil && *wind <= th.WindSpeedMax,
			SSTOK:           sst != nil && *sst >= th.SSTMin && *sst <= th.SSTMax,
			SlackOK:         slackOK,
			LightOK:         lightOK,
			IsHighTide:      highSet[i],
			Score:           score,
			Rating:          rating,
			OK:              rating.OK(),
			Sunrise:         sunrise,
			Sunset:          sunset,
		})
	}
	return records
}

// AnnotateHistory recomputes the tide, slack and per-metric flags on
// records restored from the history table, using the same detector as a
// live fetch. Stored score, rating and ok are reused as-is: the daylight
// input that produced them is not retained.
func AnnotateHistory(records []HourlyRecord, th Thresholds) []HourlyRecord {
	times := make([]time.Time, len(records))
	levels := make([]*float64, len(records))
	for i, r := range records {
		times[i] = r.Time
		levels[i] = r.SeaLevelHeight
	}

	peaks := HighTideIndices(levels)
	highSet := make(map[int]bool, len(peaks))
	highTides := make([]time.Time, 0, len(peaks))
	for _, i := range peaks {
		highSet[i] = true
		highTides = append(highTides, times[i])
	}
	inWindow := SlackMask(times, highTides, th.SlackWindow)

	for i := range records {
		r := &records[i]
		r.IsHighTide = highSet[i]
		r.SlackOK = inWindow[i] && r.CurrentVelocity != nil && *r.CurrentVelocity <= th.CurrentVelocityMax
		r.WaveOK = r.WaveHeight != nil && *r.WaveHeight <= th.WaveHeightMax
		r.WindOK = r.WindSpeed != nil && *r.WindSpeed <= th.WindSpeedMax
		r.SSTOK = r.SeaSurfaceTemp != nil && *r.SeaSurfaceTemp >= th.SSTMin && *r.SeaSurfaceTemp <= th.SSTMax
	}
	return records
}

func seriesAt(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}
