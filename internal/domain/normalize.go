package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Field names per attribute, in resolution order.
var (
	temperatureFields   = []string{"Temp", "Temperatura", "temperatura"}
	precipitationFields = []string{"Precip", "Lluvia", "precipitacion"}
	radiationFields     = []string{"Rad_max", "radiacionSolar"}
	windFields          = []string{"Vmax", "velocidadViento"}
	timestampFields     = []string{"fecha", "Fecha", "timestamp_extraccion_lote"}
)

var (
	// stationDateRe matches the station's day-first date token, e.g. "19/02/2026".
	stationDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	// clockRe matches "HH:MM" with optional seconds once the period is removed.
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// FallbackCounts tallies per-attribute fallbacks over a batch of records.
type FallbackCounts struct {
	Timestamp     int
	Temperature   int
	Precipitation int
	Radiation     int
	Wind          int
}

func (c *FallbackCounts) add(f Fallbacks) {
	if f.Timestamp {
		c.Timestamp++
	}
	if f.Temperature {
		c.Temperature++
	}
	if f.Precipitation {
		c.Precipitation++
	}
	if f.Radiation {
		c.Radiation++
	}
	if f.Wind {
		c.Wind++
	}
}

// Numeric is the number of numeric fields that fell back to zero.
func (c FallbackCounts) Numeric() int {
	return c.Temperature + c.Precipitation + c.Radiation + c.Wind
}

// Normalizer converts raw telemetry into NormalizedRecords. Station-local
// strings are interpreted in its location.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a Normalizer for the given location. A nil location
// means time.Local.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// Normalize maps one raw document onto the canonical record. It never fails:
// unusable values are replaced by defaults and reported in the returned
// Fallbacks.
func (n *Normalizer) Normalize(raw RawTelemetryRecord) (NormalizedRecord, Fallbacks) {
	var fb Fallbacks
	var rec NormalizedRecord

	rec.TemperatureC, fb.Temperature = requiredFloat(raw, temperatureFields)
	rec.PrecipitationMm, fb.Precipitation = requiredFloat(raw, precipitationFields)
	rec.Radiation, fb.Radiation = optionalFloat(raw, radiationFields)
	rec.WindSpeedKmh, fb.Wind = optionalFloat(raw, windFields)
	rec.Timestamp, fb.Timestamp = n.resolveTimestamp(raw)
	rec.Fallbacks = fb

	return rec, fb
}

// NormalizeAll normalizes a batch, preserving input order.
func (n *Normalizer) NormalizeAll(raws []RawTelemetryRecord) ([]NormalizedRecord, FallbackCounts) {
	out := make([]NormalizedRecord, 0, len(raws))
	var counts FallbackCounts
	for _, raw := range raws {
		rec, fb := n.Normalize(raw)
		counts.add(fb)
		out = append(out, rec)
	}
	return out, counts
}

// lookup returns the first present, non-null value among names.
func lookup(raw RawTelemetryRecord, names []string) (any, bool) {
	for _, name := range names {
		if v, ok := raw[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// requiredFloat resolves a mandatory numeric attribute. Missing or
// unparseable values become 0 and are flagged.
func requiredFloat(raw RawTelemetryRecord, names []string) (float64, bool) {
	v, ok := lookup(raw, names)
	if !ok {
		return 0, true
	}
	f, ok := coerceFloat(v)
	if !ok {
		return 0, true
	}
	return f, false
}

// optionalFloat resolves an optional numeric attribute. Absent values stay
// nil; present but unparseable values become 0 and are flagged.
func optionalFloat(raw RawTelemetryRecord, names []string) (*float64, bool) {
	v, ok := lookup(raw, names)
	if !ok {
		return nil, false
	}
	f, ok := coerceFloat(v)
	if !ok {
		zero := 0.0
		return &zero, true
	}
	return &f, false
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseNumeric(t)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseNumeric parses a numeric-looking string. A lone comma is accepted as
// the decimal separator ("1,5" → 1.5).
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// resolveTimestamp applies the fallback chain: native timestamps first, then
// station-format strings, then generic date strings, then the current time.
func (n *Normalizer) resolveTimestamp(raw RawTelemetryRecord) (time.Time, bool) {
	for _, name := range timestampFields {
		if t, ok := nativeTime(raw[name]); ok {
			return t.In(n.loc), false
		}
	}
	for _, name := range timestampFields {
		s, ok := raw[name].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		if t, ok := parseStationDate(s, n.loc); ok {
			return t, false
		}
		if t, err := dateparse.ParseIn(strings.TrimSpace(s), n.loc); err == nil {
			return t, false
		}
	}
	return clock.Now().In(n.loc), true
}

// nativeTime converts store-native timestamp values to an instant.
func nativeTime(v any) (time.Time, bool) {
	var t time.Time
	switch ts := v.(type) {
	case time.Time:
		t = ts
	case *time.Time:
		if ts == nil {
			return time.Time{}, false
		}
		t = *ts
	case interface{ Time() time.Time }:
		t = ts.Time()
	case interface{ AsTime() time.Time }:
		t = ts.AsTime()
	case map[string]any:
		// Exported document timestamps: {"_seconds": ..., "_nanoseconds": ...}.
		secs, ok := coerceFloat(ts["_seconds"])
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := coerceFloat(ts["_nanoseconds"])
		t = time.Unix(int64(secs), int64(nanos))
	default:
		return time.Time{}, false
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// parseStationDate parses "DD/MM/YYYY[ HH:MM[ am|pm]]". Dots are stripped so
// "p.m." and "pm" are equivalent, and the period may be fused to the time.
func parseStationDate(s string, loc *time.Location) (time.Time, bool) {
	clean := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, ".", "")))
	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return time.Time{}, false
	}

	dm := stationDateRe.FindStringSubmatch(parts[0])
	if dm == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dm[1])
	month, _ := strconv.Atoi(dm[2])
	year, _ := strconv.Atoi(dm[3])

	var hour, minute, second int
	if len(parts) > 1 {
		var ok bool
		hour, minute, second, ok = parseClock(parts[1], strings.Join(parts[2:], ""))
		if !ok {
			return time.Time{}, false
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// parseClock converts a time token plus optional trailing period into 24-hour
// components. 12 am is midnight; pm adds 12 except for 12 pm.
func parseClock(token, period string) (hour, minute, second int, ok bool) {
	for _, p := range []string{"am", "pm"} {
		if strings.HasSuffix(token, p) {
			period = p
			token = strings.TrimSuffix(token, p)
			break
		}
	}
	if period != "" && period != "am" && period != "pm" {
		return 0, 0, 0, false
	}

	cm := clockRe.FindStringSubmatch(token)
	if cm == nil {
		return 0, 0, 0, false
	}
	hour, _ = strconv.Atoi(cm[1])
	minute, _ = strconv.Atoi(cm[2])
	if cm[3] != "" {
		second, _ = strconv.Atoi(cm[3])
	}
	if minute > 59 || second > 59 {
		return 0, 0, 0, false
	}

	switch period {
	case "":
		if hour > 23 {
			return 0, 0, 0, false
		}
	case "am":
		if hour > 12 {
			return 0, 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour > 12 {
			return 0, 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	}
	return hour, minute, second, true
}
