package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fibre-tracker/internal/config"
	"fibre-tracker/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// AddressRecord is one row of a GNAF address_principals extract.
type AddressRecord struct {
	GnafPID      string
	Address      string
	LocalityName string
	Postcode     string
	State        string
	Lat          float64
	Lon          float64
}

var csvColumns = []string{"gnaf_pid", "address", "locality_name", "postcode", "state", "latitude", "longitude"}

func main() {
	file := flag.String("file", "", "Path to the CSV file to import")
	schema := flag.String("schema", "gnaf_dev", "Schema to create address_principals in")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if *file == "" {
		log.Fatal().Msg("--file flag is required")
	}

	log.Info().Str("file", *file).Msg("starting import")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open file")
	}
	records, err := parseCSV(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot parse CSV")
	}
	log.Info().Int("records", len(records)).Msg("parsed records")

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close(ctx)

	if err := createTableIfNotExists(ctx, conn, *schema); err != nil {
		log.Fatal().Err(err).Msg("cannot create table")
	}
	if err := insertRecords(ctx, conn, *schema, records); err != nil {
		log.Fatal().Err(err).Msg("cannot insert records")
	}
	if err := verifyImport(ctx, conn, *schema, len(records)); err != nil {
		log.Fatal().Err(err).Msg("import verification failed")
	}

	log.Info().Int("records", len(records)).Str("schema", *schema).Msg("import complete")
}

// parseCSV reads records with a header naming at least csvColumns, in any order.
func parseCSV(r io.Reader) ([]AddressRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var records []AddressRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("line %d: got %d columns, expected %d", line, len(row), len(header))
		}
		field := func(col string) string { return strings.TrimSpace(row[index[col]]) }

		lat, err := strconv.ParseFloat(field("latitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude: %s", line, field("latitude"))
		}
		lon, err := strconv.ParseFloat(field("longitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude: %s", line, field("longitude"))
		}

		records = append(records, AddressRecord{
			GnafPID:      field("gnaf_pid"),
			Address:      strings.ToUpper(field("address")),
			LocalityName: strings.ToUpper(field("locality_name")),
			Postcode:     field("postcode"),
			State:        strings.ToUpper(field("state")),
			Lat:          lat,
			Lon:          lon,
		})
	}

	return records, nil
}

func createTableIfNotExists(ctx context.Context, conn *pgx.Conn, schema string) error {
	query := fmt.Sprintf(`
	CREATE SCHEMA IF NOT EXISTS %[1]s;
	CREATE TABLE IF NOT EXISTS %[1]s.address_principals (
		gnaf_pid VARCHAR(16) PRIMARY KEY,
		address TEXT NOT NULL,
		locality_name TEXT NOT NULL,
		postcode TEXT,
		state TEXT NOT NULL,
		latitude NUMERIC(10,8) NOT NULL,
		longitude NUMERIC(11,8) NOT NULL
	);
	`, pgx.Identifier{schema}.Sanitize())
	_, err := conn.Exec(ctx, query)
	return err
}

func insertRecords(ctx context.Context, conn *pgx.Conn, schema string, records []AddressRecord) error {
	// Use CopyFrom for bulk insert
	_, err := conn.CopyFrom(
		ctx,
		pgx.Identifier{schema, "address_principals"},
		csvColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			var postcode any
			if r.Postcode != "" {
				postcode = r.Postcode
			}
			return []any{r.GnafPID, r.Address, r.LocalityName, postcode, r.State, r.Lat, r.Lon}, nil
		}),
	)
	return err
}

func verifyImport(ctx context.Context, conn *pgx.Conn, schema string, expectedCount int) error {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{schema, "address_principals"}.Sanitize())
	if err := conn.QueryRow(ctx, query).Scan(&count); err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	if count < expectedCount {
		return fmt.Errorf("record count mismatch: expected at least %d, got %d", expectedCount, count)
	}
	return nil
}
