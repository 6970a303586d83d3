// Package mongo reads raw station telemetry from a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements report.TelemetrySource over a MongoDB collection of
// heterogeneous station documents.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB, verifies the connection, and binds the collection.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// FetchRecentRecords returns up to limit documents, newest first. Insertion
// order is taken from the ObjectID, which embeds its creation time.
func (s *Store) FetchRecentRecords(ctx context.Context, limit int) ([]domain.RawTelemetryRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find telemetry: %w", err)
	}
	defer cur.Close(ctx)

	records := make([]domain.RawTelemetryRecord, 0, limit)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode telemetry: %w", err)
		}
		records = append(records, toRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry: %w", err)
	}
	return records, nil
}

// Ping checks the server connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toRecord converts a decoded document into a raw record, dropping the
// document ID and mapping BSON-specific values onto types the normalizer
// understands.
func toRecord(doc bson.M) domain.RawTelemetryRecord {
	rec := make(domain.RawTelemetryRecord, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		rec[k] = toNative(v)
	}
	return rec
}

func toNative(v any) any {
	switch t := v.(type) {
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0)
	case primitive.Decimal128:
		return t.String()
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = toNative(val)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = toNative(e.Value)
		}
		return out
	default:
		return v
	}
}
