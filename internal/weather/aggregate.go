package weather

import "time"

// AggregatePeriods combines the periods of a single day into a DaySummary.
// Temperatures become the day's extremes, humidity is averaged, precipitation
// is summed and wind keeps its maximum. Periods on another UTC date are ignored.
func AggregatePeriods(day time.Time, periods []Period) DaySummary {
	date := day.UTC().Format(DateLayout)
	summary := DaySummary{Date: date, Condition: ConditionUnknown}

	var (
		sumHumidity float64
		sameDay     []Period
	)

	for _, p := range periods {
		if p.Time.UTC().Format(DateLayout) != date {
			continue
		}

		if len(sameDay) == 0 || p.TempMin < summary.TempMin {
			summary.TempMin = p.TempMin
		}
		if len(sameDay) == 0 || p.TempMax > summary.TempMax {
			summary.TempMax = p.TempMax
		}
		if p.WindSpeed > summary.WindSpeedMax {
			summary.WindSpeedMax = p.WindSpeed
		}
		sumHumidity += p.Humidity
		summary.Precipitation += p.Precipitation
		sameDay = append(sameDay, p)
	}

	if len(sameDay) > 0 {
		summary.Humidity = sumHumidity / float64(len(sameDay))
		summary.Condition = MajorityCondition(sameDay)
	}
	return summary
}

// MajorityCondition picks the most frequent condition. On a tie the condition
// that reached the count first wins.
func MajorityCondition(periods []Period) Condition {
	counts := make(map[Condition]int)
	best := ConditionUnknown
	bestCount := 0
	for _, p := range periods {
		counts[p.Condition]++
		if counts[p.Condition] > bestCount {
			bestCount = counts[p.Condition]
			best = p.Condition
		}
	}
	return best
}
