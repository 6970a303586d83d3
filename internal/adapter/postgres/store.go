// Package postgres reads raw telemetry documents stored as JSONB rows.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS telemetry_records (
    id          BIGSERIAL PRIMARY KEY,
    payload     JSONB       NOT NULL,
    ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS telemetry_records_ingested_at_idx
    ON telemetry_records (ingested_at DESC, id DESC);
`

const recentRecordsSQL = `
    SELECT payload
    FROM telemetry_records
    ORDER BY ingested_at DESC, id DESC
    LIMIT $1
`

const insertRecordSQL = `INSERT INTO telemetry_records (payload) VALUES ($1)`

// Store implements report.TelemetrySource over PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool and verifies connectivity.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the telemetry table and index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FetchRecentRecords returns up to limit documents, most recently ingested
// first.
func (s *Store) FetchRecentRecords(ctx context.Context, limit int) ([]domain.RawTelemetryRecord, error) {
	rows, err := s.pool.Query(ctx, recentRecordsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	records := make([]domain.RawTelemetryRecord, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		rec, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert stores raw documents in one batch, in the given order.
func (s *Store) Insert(ctx context.Context, records []domain.RawTelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode telemetry: %w", err)
		}
		batch.Queue(insertRecordSQL, payload)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range records {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("insert telemetry: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// decodePayload parses a JSONB document keeping numbers as json.Number so
// the normalizer sees them without float rounding.
func decodePayload(payload []byte) (domain.RawTelemetryRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var rec domain.RawTelemetryRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode telemetry payload: %w", err)
	}
	if rec == nil {
		rec = domain.RawTelemetryRecord{}
	}
	return rec, nil
}
