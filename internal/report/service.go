// Package report orchestrates telemetry retrieval, metric computation, and
// narrative generation for agronomic reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	"github.com/google/uuid"
)

// Degraded-mode texts substituted when narrative generation is unavailable.
const (
	NarrativeUnavailable = "The intelligent analysis could not be generated at this time. Please review the numeric metrics."
	NarrativeDisabled    = "Narrative analysis is not configured. The numeric metrics are complete."
	ChatUnavailable      = "Sorry, I could not process your question at this time."
	ChatDisabled         = "Narrative service not configured."
)

// ErrFetchTelemetry wraps failures of the telemetry store.
var ErrFetchTelemetry = errors.New("fetch telemetry")

// TelemetrySource returns the most recently ingested raw records, newest
// first, at most limit of them.
type TelemetrySource interface {
	FetchRecentRecords(ctx context.Context, limit int) ([]domain.RawTelemetryRecord, error)
}

// TextGenerator produces a single-shot text completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ReportPublisher announces generated reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r domain.AgroReportResult) error
}

// Options tune the Service.
type Options struct {
	// FetchLimit caps the candidate pool requested from the store.
	FetchLimit int
	// FetchTimeout bounds a single store fetch. Zero means no extra bound.
	FetchTimeout time.Duration
	// Location defines local calendar days. Nil means time.Local.
	Location *time.Location
}

// DefaultFetchLimit is used when Options.FetchLimit is not positive.
const DefaultFetchLimit = 2000

// Service generates agronomic reports and answers follow-up questions.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	source     TelemetrySource
	narrator   TextGenerator
	publisher  ReportPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options
	normalizer *domain.Normalizer
}

// New creates a Service. A nil narrator puts narrative generation in
// disabled mode; a nil publisher disables report events.
func New(source TelemetrySource, narrator TextGenerator, publisher ReportPublisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = DefaultFetchLimit
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		source:     source,
		narrator:   narrator,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		normalizer: domain.NewNormalizer(opts.Location),
	}
}

// Location returns the zone used for calendar days.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// GenerateReport fetches telemetry, computes the metric bundle and chart
// series for the requested range, and attaches a narrative. Narrative
// failures degrade to a fixed notice; store failures and empty ranges are
// returned as errors.
func (s *Service) GenerateReport(ctx context.Context, params domain.AgroReportParams) (domain.AgroReportResult, error) {
	start := time.Now()

	if err := params.Validate(); err != nil {
		s.metrics.ReportsGenerated.WithLabelValues("invalid").Inc()
		return domain.AgroReportResult{}, err
	}

	pool, err := s.candidatePool(ctx)
	if err != nil {
		s.metrics.ReportsGenerated.WithLabelValues("fetch_error").Inc()
		return domain.AgroReportResult{}, err
	}

	loc := s.opts.Location
	period := domain.Period{
		StartDate: domain.FormatDate(params.StartDate.In(loc)),
		EndDate:   domain.FormatDate(params.EndDate.In(loc)),
	}

	inRange := domain.FilterRange(pool, params.StartDate, params.EndDate, loc)
	s.metrics.RecordsInRange.Observe(float64(len(inRange)))
	if len(inRange) == 0 {
		s.metrics.ReportsGenerated.WithLabelValues("empty_range").Inc()
		s.logger.Info("no telemetry in range",
			"start_date", period.StartDate, "end_date", period.EndDate, "pool_size", len(pool))
		return domain.AgroReportResult{}, &domain.EmptyRangeError{Start: period.StartDate, End: period.EndDate}
	}

	truncated := domain.PoolMayBeTruncated(pool, s.opts.FetchLimit, params.StartDate, loc)
	if truncated {
		s.metrics.RangeTruncated.Inc()
		s.logger.Warn("candidate pool may not cover the requested range",
			"start_date", period.StartDate, "fetch_limit", s.opts.FetchLimit)
	}

	days := domain.GroupByDay(inRange, loc)
	bundle := domain.ComputeMetrics(inRange, days.Sorted(), params)
	series := domain.BuildSeries(days, params.CropBaseTempC)

	result := domain.AgroReportResult{
		ID:     uuid.NewString(),
		Period: period,
		Thresholds: domain.Thresholds{
			CropBaseTempC: params.CropBaseTempC,
			CropMaxTempC:  params.CropMaxTempC,
		},
		DataPointCount: len(inRange),
		Metrics:        bundle,
		ChartSeries:    series,
		Narrative:      s.narrate(ctx, params, bundle),
		Truncated:      truncated,
		DataQuality:    domain.SummarizeQuality(inRange),
		GeneratedAt:    domain.Now(),
	}

	s.publish(ctx, result)

	s.metrics.ReportsGenerated.WithLabelValues("success").Inc()
	s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("report generated",
		"report_id", result.ID,
		"start_date", period.StartDate,
		"end_date", period.EndDate,
		"record_count", result.DataPointCount,
		"day_count", len(series),
		"disease_risk", bundle.DiseaseRisk,
		"truncated", truncated,
	)
	return result, nil
}

// Chat answers a follow-up question about a previously generated report.
// It never fails: collaborator errors produce a fixed apology.
func (s *Service) Chat(ctx context.Context, question string, prior domain.AgroReportResult) string {
	if s.narrator == nil {
		s.metrics.NarrativeRequests.WithLabelValues("chat", "disabled").Inc()
		return ChatDisabled
	}

	answer, err := s.narrator.GenerateText(ctx, domain.BuildChatPrompt(question, prior))
	if err != nil || strings.TrimSpace(answer) == "" {
		if err == nil {
			err = errors.New("empty completion")
		}
		s.metrics.NarrativeRequests.WithLabelValues("chat", "error").Inc()
		s.logger.Error("chat generation failed", "error", err, "report_id", prior.ID)
		return ChatUnavailable
	}
	s.metrics.NarrativeRequests.WithLabelValues("chat", "success").Inc()
	return answer
}

// RangeRecords returns the normalized records inside [start, end], sorted
// ascending.
func (s *Service) RangeRecords(ctx context.Context, start, end time.Time) ([]domain.NormalizedRecord, error) {
	params := domain.AgroReportParams{StartDate: start, EndDate: end}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	pool, err := s.candidatePool(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterRange(pool, start, end, s.opts.Location), nil
}

// CheckReadiness reports whether the telemetry store is reachable, when the
// store supports a health check.
func (s *Service) CheckReadiness(ctx context.Context) error {
	p, ok := s.source.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("telemetry store unreachable: %w", err)
	}
	return nil
}

// candidatePool fetches and normalizes the most recent records.
func (s *Service) candidatePool(ctx context.Context) ([]domain.NormalizedRecord, error) {
	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	raws, err := s.source.FetchRecentRecords(fetchCtx, s.opts.FetchLimit)
	if err != nil {
		s.logger.Error("fetch telemetry failed", "error", err, "limit", s.opts.FetchLimit)
		return nil, fmt.Errorf("%w: %w", ErrFetchTelemetry, err)
	}
	s.metrics.RecordsFetched.Observe(float64(len(raws)))

	records, counts := s.normalizer.NormalizeAll(raws)
	s.recordFallbacks(counts)
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		for i, r := range records {
			if f := r.Fallbacks; f.Timestamp || f.Numeric() {
				s.logger.Debug("normalization fallback",
					"pool_index", i,
					"timestamp", r.Timestamp,
					"timestamp_fallback", f.Timestamp,
					"temperature_fallback", f.Temperature,
					"precipitation_fallback", f.Precipitation,
					"radiation_fallback", f.Radiation,
					"wind_fallback", f.Wind,
				)
			}
		}
	}
	return records, nil
}

func (s *Service) recordFallbacks(c domain.FallbackCounts) {
	for field, n := range map[string]int{
		"timestamp":     c.Timestamp,
		"temperature":   c.Temperature,
		"precipitation": c.Precipitation,
		"radiation":     c.Radiation,
		"wind":          c.Wind,
	} {
		if n > 0 {
			s.metrics.NormalizationFallbacks.WithLabelValues(field).Add(float64(n))
		}
	}
	if c.Timestamp > 0 || c.Numeric() > 0 {
		s.logger.Warn("normalization fallbacks applied",
			"timestamp_fallbacks", c.Timestamp,
			"temperature_fallbacks", c.Temperature,
			"precipitation_fallbacks", c.Precipitation,
			"radiation_fallbacks", c.Radiation,
			"wind_fallbacks", c.Wind,
		)
	}
}

func (s *Service) narrate(ctx context.Context, params domain.AgroReportParams, m domain.MetricsBundle) string {
	if s.narrator == nil {
		s.metrics.NarrativeRequests.WithLabelValues("report", "disabled").Inc()
		return NarrativeDisabled
	}

	text, err := s.narrator.GenerateText(ctx, domain.BuildNarrativePrompt(params, m))
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = errors.New("empty completion")
		}
		s.metrics.NarrativeRequests.WithLabelValues("report", "error").Inc()
		s.logger.Error("narrative generation failed", "error", err)
		return NarrativeUnavailable
	}
	s.metrics.NarrativeRequests.WithLabelValues("report", "success").Inc()
	return text
}

func (s *Service) publish(ctx context.Context, r domain.AgroReportResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReport(ctx, r); err != nil {
		s.logger.Warn("publish report event failed", "error", err, "report_id", r.ID)
	}
}
