// Package domain implements the agronomic analytics engine: normalization of
// raw hourly weather telemetry, day bucketing, and the decision metrics
// derived from it.
//
// # Raw Telemetry
//
// Hourly documents come from a station ingestion process that has changed
// shape over time. The same attribute may appear under different names and
// as either a number or a numeric-looking string:
//
//	Temperature (°C):     "Temp", "Temperatura", "temperatura"
//	Precipitation (mm):   "Precip", "Lluvia", "precipitacion"
//	Radiation (W/m²):     "Rad_max", "radiacionSolar"
//	Wind speed (km/h):    "Vmax", "velocidadViento"
//	Observation time:     "fecha", "Fecha", "timestamp_extraccion_lote"
//
// Names are resolved in the listed order and the first present, non-null
// field wins. See [Normalizer].
//
// Time format:
//
//	Store-native timestamps (time.Time, or any value with a Time() method such
//	as a BSON DateTime) are used as-is. Otherwise strings in the station's
//	locale format are parsed:
//
//	  "19/02/2026"            →  2026-02-19 00:00 local
//	  "19/02/2026 02:00 p.m." →  2026-02-19 14:00 local
//	  "19/02/2026 12:30am"    →  2026-02-19 00:30 local
//
//	Periods may be fused to the time token and may carry dots. Any other
//	string is handed to a generic date parser. When everything fails the
//	record is stamped with the current time and flagged as a fallback.
//
// Unparseable numbers become 0 and are flagged the same way. Fallbacks never
// reject a record; they are counted in [DataQuality] so operators can see
// them.
//
// # Calendar Days
//
// Range bounds and day keys use the engine's configured location. A day key
// is the local calendar date formatted "2006-01-02". The range
// [start, end] covers start 00:00:00.000 through end 23:59:59.999.
//
// # Metrics
//
//	GDD:      Σ max(0, (tMax+tMin)/2 − base) per day
//	Stress:   hours with T > max (heat) and T < base (cold)
//	ETo:      Σ 0.0023 · Ra · (tMean+17.8) · √max(0, tMax−tMin) per day,
//	          Ra = mean radiation · 0.0864, or 10 when that is exactly 0
//	Balance:  Σ precipitation − ETo
//	Disease:  day is risky when rain > 0.2 mm and 18 ≤ mean T ≤ 25;
//	          >50% risky days HIGH, >20% MEDIUM, else LOW
//	Spraying: hours with wind < 10 km/h and no precipitation
//
// Totals are rounded to two decimals.
package domain
