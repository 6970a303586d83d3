//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("agro-test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs a throwaway database and returns its connection URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("agro"),
		tcpostgres.WithUsername("agro"),
		tcpostgres.WithPassword("agro"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// stationDocuments spans 31 Jan to 3 Feb 2026 in the station's mixed
// formats, oldest first as it would be ingested.
func stationDocuments() []domain.RawTelemetryRecord {
	return []domain.RawTelemetryRecord{
		{"Fecha": "31/01/2026 11:00 p.m.", "Temp": 40.0, "Precip": 12.0},
		{"Fecha": "01/02/2026 06:00 a.m.", "Temp": 28.0, "Precip": 0.5},
		{"Fecha": "01/02/2026 2:00pm", "Temp": 12.0, "Precip": "0,3"},
		{"Fecha": "02/02/2026 06:00 am", "Temp": 32.0, "Precip": 0.0},
		{"fecha": "2026-02-02T14:00:00Z", "temperatura": 20.0, "precipitacion": 0.0},
		{"Fecha": "03/02/2026 06:00 a.m.", "Temp": "18", "Precip": "0"},
		{"Fecha": "03/02/2026 02:00 p.m.", "Temp": 8.0, "Precip": 0.0},
	}
}

func day(d int) time.Time {
	return time.Date(2026, time.February, d, 0, 0, 0, 0, time.UTC)
}
