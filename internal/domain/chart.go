package domain

// BuildSeries produces the per-day chart series in ascending date order.
// Days without readings are skipped.
func BuildSeries(days DailyBuckets, baseTemp float64) []ChartPoint {
	series := make([]ChartPoint, 0, len(days))
	for _, d := range days.Sorted() {
		if len(d.Records) == 0 {
			continue
		}
		series = append(series, ChartPoint{
			Date:     d.Date,
			GDD:      Round2(DailyGDD(d.TMax, d.TMin, baseTemp)),
			Rainfall: Round2(d.TotalPrecipitation),
			TMax:     d.TMax,
			TMin:     d.TMin,
		})
	}
	return series
}
