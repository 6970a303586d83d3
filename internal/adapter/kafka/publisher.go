package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/config"
	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventReportGenerated is the type of the event emitted per report.
const EventReportGenerated = "report.generated"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces report events to a Kafka topic.
// It implements report.ReportPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// Events are written on the report request path; a single event flushes
// without waiting for a batch to fill.
const (
	publishBatchTimeout = 5 * time.Millisecond
	publishWriteTimeout = 5 * time.Second
)

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaReportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              1,
		BatchTimeout:           publishBatchTimeout,
		WriteTimeout:           publishWriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReport writes one report.generated event keyed by report ID.
func (p *Publisher) PublishReport(ctx context.Context, r domain.AgroReportResult) error {
	msg, err := serializeReport(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report event: %w", err)
	}
	p.logger.Debug("report event published", "report_id", r.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ReportEvent is the wire form of a generated report. The narrative text is
// left out; consumers that need it fetch the report.
type ReportEvent struct {
	Type           string               `json:"type"`
	ReportID       string               `json:"reportId"`
	Period         domain.Period        `json:"period"`
	Thresholds     domain.Thresholds    `json:"thresholds"`
	DataPointCount int                  `json:"dataPointCount"`
	Metrics        domain.MetricsBundle `json:"metrics"`
	Truncated      bool                 `json:"truncated"`
	DataQuality    domain.DataQuality   `json:"dataQuality"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

// serializeReport marshals a report into a Kafka message.
func serializeReport(r domain.AgroReportResult) (kafkago.Message, error) {
	data, err := json.Marshal(ReportEvent{
		Type:           EventReportGenerated,
		ReportID:       r.ID,
		Period:         r.Period,
		Thresholds:     r.Thresholds,
		DataPointCount: r.DataPointCount,
		Metrics:        r.Metrics,
		Truncated:      r.Truncated,
		DataQuality:    r.DataQuality,
		GeneratedAt:    r.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventReportGenerated)},
			{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
