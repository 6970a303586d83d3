package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the format of day keys and API dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" API date as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingParameters
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidParameters, s)
	}
	return t, nil
}

// FormatDate renders the calendar date of t as a day key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// RangeBounds returns the inclusive instants covering the calendar days of
// start through end in loc: start 00:00:00.000 and end 23:59:59.999.
func RangeBounds(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	s := start.In(loc)
	e := end.In(loc)
	lower := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	upper := time.Date(e.Year(), e.Month(), e.Day()+1, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	return lower, upper
}

// FilterRange keeps the records timestamped within [start, end] (whole days,
// see RangeBounds) and returns them sorted ascending. The input is not
// modified. Records of equal time keep their input order.
func FilterRange(records []NormalizedRecord, start, end time.Time, loc *time.Location) []NormalizedRecord {
	lower, upper := RangeBounds(start, end, loc)

	out := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Before(lower) || r.Timestamp.After(upper) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// PoolMayBeTruncated reports whether a capped candidate pool can be missing
// in-range records: the store returned a full page and nothing in it reaches
// back before the range start.
func PoolMayBeTruncated(pool []NormalizedRecord, limit int, start time.Time, loc *time.Location) bool {
	if limit <= 0 || len(pool) < limit {
		return false
	}
	lower, _ := RangeBounds(start, start, loc)
	for _, r := range pool {
		if r.Timestamp.Before(lower) {
			return false
		}
	}
	return true
}
