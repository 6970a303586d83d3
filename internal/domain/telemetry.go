package domain

import (
	"errors"
	"fmt"
	"time"
)

// RawTelemetryRecord is one hourly document as stored upstream. Field names
// and value types vary between ingestion generations.
type RawTelemetryRecord map[string]any

// NormalizedRecord is the canonical hourly observation.
type NormalizedRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	TemperatureC    float64   `json:"temperature"`
	PrecipitationMm float64   `json:"precipitation"`
	Radiation       *float64  `json:"radiation,omitempty"`
	WindSpeedKmh    *float64  `json:"windSpeed,omitempty"`

	// Fallbacks records which attributes were defaulted during normalization.
	Fallbacks Fallbacks `json:"-"`
}

// Fallbacks flags which attributes of a record were coerced to a default.
type Fallbacks struct {
	Timestamp     bool
	Temperature   bool
	Precipitation bool
	Radiation     bool
	Wind          bool
}

// Numeric reports whether any numeric attribute fell back to a default.
func (f Fallbacks) Numeric() bool {
	return f.Temperature || f.Precipitation || f.Radiation || f.Wind
}

// DataQuality summarises normalization fallbacks over a set of records:
// how many records got a substitute timestamp and how many had at least one
// numeric field defaulted to zero.
type DataQuality struct {
	TimestampFallbacks int `json:"timestampFallbacks"`
	NumericFallbacks   int `json:"numericFallbacks"`
}

// SummarizeQuality counts the fallback-affected records.
func SummarizeQuality(records []NormalizedRecord) DataQuality {
	var q DataQuality
	for _, r := range records {
		if r.Fallbacks.Timestamp {
			q.TimestampFallbacks++
		}
		if r.Fallbacks.Numeric() {
			q.NumericFallbacks++
		}
	}
	return q
}

// AgroReportParams are the caller-supplied inputs of a report. Thresholds are
// not checked for biological plausibility.
type AgroReportParams struct {
	StartDate     time.Time
	EndDate       time.Time
	CropBaseTempC float64
	CropMaxTempC  float64
}

// Default crop thresholds applied when the caller omits them.
const (
	DefaultCropBaseTempC = 10.0
	DefaultCropMaxTempC  = 30.0
)

// Validate checks that both dates are present and ordered.
func (p AgroReportParams) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return ErrMissingParameters
	}
	if p.StartDate.After(p.EndDate) {
		return fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidParameters, FormatDate(p.StartDate), FormatDate(p.EndDate))
	}
	return nil
}

// Period is the requested date range in day-key form.
type Period struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Thresholds echoes the crop temperatures a report was computed with.
type Thresholds struct {
	CropBaseTempC float64 `json:"cropBaseTemp"`
	CropMaxTempC  float64 `json:"cropMaxTemp"`
}

// RiskLevel classifies fungal disease pressure.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// StressHours counts hourly readings outside the crop's tolerated band.
type StressHours struct {
	Heat int `json:"heat"`
	Cold int `json:"cold"`
}

// WaterBalance compares precipitation against reference evapotranspiration.
type WaterBalance struct {
	TotalInput  float64 `json:"totalInput"`
	TotalOutput float64 `json:"totalOutput"`
	Balance     float64 `json:"balance"`
}

// OptimalWindows counts hours suitable for field operations.
type OptimalWindows struct {
	SprayHours int `json:"sprayHours"`
}

// MetricsBundle holds every decision metric of a report.
type MetricsBundle struct {
	GDD            float64        `json:"gdd"`
	StressHours    StressHours    `json:"stressHours"`
	WaterBalance   WaterBalance   `json:"waterBalance"`
	ETo            float64        `json:"eto"`
	DiseaseRisk    RiskLevel      `json:"diseaseRisk"`
	OptimalWindows OptimalWindows `json:"optimalWindows"`
}

// ChartPoint is one day of the visualization series.
type ChartPoint struct {
	Date     string  `json:"date"`
	GDD      float64 `json:"gdd"`
	Rainfall float64 `json:"rainfall"`
	TMax     float64 `json:"tMax"`
	TMin     float64 `json:"tMin"`
}

// AgroReportResult is the full answer to a report request. Callers keep it
// to ask follow-up questions; the engine does not persist it.
type AgroReportResult struct {
	ID             string        `json:"id"`
	Period         Period        `json:"period"`
	Thresholds     Thresholds    `json:"thresholds"`
	DataPointCount int           `json:"dataPointCount"`
	Metrics        MetricsBundle `json:"metrics"`
	ChartSeries    []ChartPoint  `json:"chartSeries"`
	Narrative      string        `json:"narrative"`
	Truncated      bool          `json:"truncated"`
	DataQuality    DataQuality   `json:"dataQuality"`
	GeneratedAt    time.Time     `json:"generatedAt"`
}

var (
	// ErrMissingParameters is returned when a start or end date is absent.
	ErrMissingParameters = errors.New("startDate and endDate are required")

	// ErrInvalidParameters is returned for present but unusable parameters.
	ErrInvalidParameters = errors.New("invalid report parameters")
)

// EmptyRangeError reports that no telemetry fell inside the requested range.
type EmptyRangeError struct {
	Start string
	End   string
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("no telemetry found for range %s - %s", e.Start, e.End)
}
