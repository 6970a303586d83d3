// Command agrocheck runs the report engine over a JSON fixture of raw station
// telemetry and prints the resulting report. The clock and report ID are
// fixed so the output is reproducible. With -seed the fixture is instead
// loaded into the PostgreSQL telemetry store named by DATABASE_URL.
//
// Usage:
//
//	go run ./cmd/agrocheck \
//	  -input cmd/agrocheck/testdata/station.json \
//	  -start 2026-02-01 -end 2026-02-03 -tz America/Bogota
//
//	DATABASE_URL=postgres://... go run ./cmd/agrocheck -input fixture.json -seed
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/agro-analytics-service/internal/adapter/postgres"
	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	"github.com/couchcryptid/agro-analytics-service/internal/report"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "agrocheck: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	input    string
	start    string
	end      string
	baseTemp float64
	maxTemp  float64
	tz       string
	now      string
	id       string
	seed     bool
	verbose  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("agrocheck", flag.ContinueOnError)
	fs.StringVar(&o.input, "input", "", "path to a JSON array of raw telemetry records, newest first")
	fs.StringVar(&o.start, "start", "", "range start, YYYY-MM-DD")
	fs.StringVar(&o.end, "end", "", "range end, YYYY-MM-DD")
	fs.Float64Var(&o.baseTemp, "base", domain.DefaultCropBaseTempC, "crop base temperature (C)")
	fs.Float64Var(&o.maxTemp, "max", domain.DefaultCropMaxTempC, "crop maximum temperature (C)")
	fs.StringVar(&o.tz, "tz", "UTC", "IANA zone defining calendar days")
	fs.StringVar(&o.now, "now", "2026-01-01T00:00:00Z", "fixed engine clock, RFC 3339")
	fs.StringVar(&o.id, "id", "agrocheck", "report ID written to the output")
	fs.BoolVar(&o.seed, "seed", false, "insert the fixture into the store at DATABASE_URL instead of reporting")
	fs.BoolVar(&o.verbose, "v", false, "log engine diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.input == "" {
		fs.Usage()
		return o, errors.New("missing required flag: -input")
	}
	if !o.seed && (o.start == "" || o.end == "") {
		fs.Usage()
		return o, errors.New("missing required flags: -start, -end")
	}
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	records, err := loadFixture(o.input)
	if err != nil {
		return err
	}

	if o.seed {
		return seed(records, stdout)
	}
	return check(o, records, stdout)
}

func check(o options, records []domain.RawTelemetryRecord, stdout io.Writer) error {
	loc, err := time.LoadLocation(o.tz)
	if err != nil {
		return fmt.Errorf("invalid -tz %q: %w", o.tz, err)
	}
	now, err := time.Parse(time.RFC3339, o.now)
	if err != nil {
		return fmt.Errorf("invalid -now %q: %w", o.now, err)
	}

	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	start, err := domain.ParseDate(o.start, loc)
	if err != nil {
		return err
	}
	end, err := domain.ParseDate(o.end, loc)
	if err != nil {
		return err
	}

	var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if o.verbose {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	svc := report.New(fixtureSource(records), nil, nil, slog.New(handler), observability.NewMetricsForTesting(),
		report.Options{FetchLimit: len(records) + 1, Location: loc})

	result, err := svc.GenerateReport(context.Background(), domain.AgroReportParams{
		StartDate:     start,
		EndDate:       end,
		CropBaseTempC: o.baseTemp,
		CropMaxTempC:  o.maxTemp,
	})
	if err != nil {
		return err
	}
	result.ID = o.id

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func seed(records []domain.RawTelemetryRecord, stdout io.Writer) error {
	_ = godotenv.Load()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return errors.New("DATABASE_URL is required with -seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, url)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Insert oldest first so ingestion order matches the fixture's recency order.
	oldestFirst := make([]domain.RawTelemetryRecord, len(records))
	for i, r := range records {
		oldestFirst[len(records)-1-i] = r
	}
	if err := store.Insert(ctx, oldestFirst); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "seeded %d records\n", len(records))
	return nil
}

func loadFixture(path string) ([]domain.RawTelemetryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var records []domain.RawTelemetryRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return records, nil
}

// fixtureSource serves fixture records as the store would: newest first,
// capped at limit.
type fixtureSource []domain.RawTelemetryRecord

func (s fixtureSource) FetchRecentRecords(_ context.Context, limit int) ([]domain.RawTelemetryRecord, error) {
	if limit < len(s) {
		return s[:limit], nil
	}
	return s, nil
}
