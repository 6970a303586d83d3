package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/config"
	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testReport() domain.AgroReportResult {
	return domain.AgroReportResult{
		ID:             "rep-1",
		Period:         domain.Period{StartDate: "2026-02-01", EndDate: "2026-02-03"},
		Thresholds:     domain.Thresholds{CropBaseTempC: 10, CropMaxTempC: 30},
		DataPointCount: 72,
		Metrics:        domain.MetricsBundle{GDD: 29, DiseaseRisk: domain.RiskMedium},
		Narrative:      "Long narrative text.",
		GeneratedAt:    time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestSerializeReport(t *testing.T) {
	r := testReport()

	msg, err := serializeReport(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("rep-1"), msg.Key)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(EventReportGenerated), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-02-05T12:00:00Z"), msg.Headers[1].Value)

	var event ReportEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventReportGenerated, event.Type)
	assert.Equal(t, "rep-1", event.ReportID)
	assert.Equal(t, r.Period, event.Period)
	assert.Equal(t, 29.0, event.Metrics.GDD)
	assert.Equal(t, 72, event.DataPointCount)
	assert.NotContains(t, string(msg.Value), "Long narrative text.")
}

func TestPublisher_PublishReport(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.PublishReport(context.Background(), testReport()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("rep-1"), w.msgs[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := p.PublishReport(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write report event")
}

func TestNewPublisher_WriterSettings(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:     []string{"broker-1:9092"},
		KafkaReportTopic: "agro-reports",
	}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "agro-reports", w.Topic)
	assert.Equal(t, "broker-1:9092", w.Addr.String())
	assert.Equal(t, kafkago.RequireAll, w.RequiredAcks)
	assert.Equal(t, 1, w.BatchSize)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond, "a single event must not wait for a batch to fill")
	assert.Equal(t, publishWriteTimeout, w.WriteTimeout)
	assert.IsType(t, &kafkago.Hash{}, w.Balancer)
}
