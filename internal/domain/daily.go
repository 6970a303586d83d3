package domain

import (
	"sort"
	"time"
)

// DailyBucket groups the records of one local calendar day.
type DailyBucket struct {
	Date    string
	Records []NormalizedRecord

	TMax               float64
	TMin               float64
	AvgTemp            float64
	TotalPrecipitation float64
	AvgRadiation       float64
}

// DailyBuckets maps day keys to their buckets.
type DailyBuckets map[string]*DailyBucket

// GroupByDay buckets records by the local calendar date of their timestamp.
// Records keep their input order inside a bucket; sort the input first when
// chronological order matters. Every bucket holds at least one record.
func GroupByDay(records []NormalizedRecord, loc *time.Location) DailyBuckets {
	if loc == nil {
		loc = time.Local
	}
	days := make(DailyBuckets)
	for _, r := range records {
		key := FormatDate(r.Timestamp.In(loc))
		b, ok := days[key]
		if !ok {
			b = &DailyBucket{Date: key}
			days[key] = b
		}
		b.Records = append(b.Records, r)
	}
	for _, b := range days {
		b.summarize()
	}
	return days
}

// Sorted returns the buckets in ascending date order.
func (d DailyBuckets) Sorted() []*DailyBucket {
	out := make([]*DailyBucket, 0, len(d))
	for _, b := range d {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (b *DailyBucket) summarize() {
	if len(b.Records) == 0 {
		return
	}
	b.TMax = b.Records[0].TemperatureC
	b.TMin = b.Records[0].TemperatureC

	var tempSum, precipSum, radSum float64
	for _, r := range b.Records {
		t := r.TemperatureC
		if t > b.TMax {
			b.TMax = t
		}
		if t < b.TMin {
			b.TMin = t
		}
		tempSum += t
		precipSum += r.PrecipitationMm
		if r.Radiation != nil {
			radSum += *r.Radiation
		}
	}

	n := float64(len(b.Records))
	b.AvgTemp = tempSum / n
	b.TotalPrecipitation = precipSum
	b.AvgRadiation = radSum / n
}
