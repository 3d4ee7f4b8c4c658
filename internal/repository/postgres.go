package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fibre-tracker/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxAddressesPerSuburb caps a single suburb query.
const MaxAddressesPerSuburb = 100000

// Repository reads addresses from a GNAF database loaded by gnaf-loader.
type Repository struct {
	db     *pgxpool.Pool
	schema string
}

// NewRepository creates a repository reading address_principals from schema.
func NewRepository(db *pgxpool.Pool, schema string) *Repository {
	return &Repository{db: db, schema: schema}
}

// DetectSchema returns the name of the GNAF schema (gnaf_YYYYMM), preferring the newest.
func DetectSchema(ctx context.Context, db *pgxpool.Pool) (string, error) {
	var schema string
	err := db.QueryRow(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name LIKE 'gnaf\_%'
		ORDER BY schema_name DESC
		LIMIT 1
	`).Scan(&schema)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("repository: no gnaf_* schema: %w", models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("repository: failed to detect schema: %w", err)
	}
	return schema, nil
}

func (r *Repository) table() string {
	return pgx.Identifier{r.schema, "address_principals"}.Sanitize()
}

// CreateIndex adds the (locality_name, state) index used by GetAddresses if it is missing.
func (r *Repository) CreateIndex(ctx context.Context) error {
	sql := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS address_name_state ON %s (locality_name, state)", r.table())
	if _, err := r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("repository: failed to create index: %w", err)
	}
	return nil
}

// GetAddresses returns the addresses of one locality. Names are formatted as
// "<address> <LOCALITY> <postcode>", which is what the NBN search expects.
func (r *Repository) GetAddresses(ctx context.Context, suburb, state string) ([]models.Address, error) {
	locality := strings.ToUpper(strings.TrimSpace(suburb))
	sql := fmt.Sprintf(`
		SELECT
			gnaf_pid,
			address,
			postcode,
			latitude,
			longitude
		FROM %s
		WHERE locality_name = $1 AND state = $2
		LIMIT %d
	`, r.table(), MaxAddressesPerSuburb)

	rows, err := r.db.Query(ctx, sql, locality, strings.ToUpper(state))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute address query: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var (
			gnafPID, address string
			postcode         *string
			lat, lon         float64
		)
		if err := rows.Scan(&gnafPID, &address, &postcode, &lat, &lon); err != nil {
			return nil, fmt.Errorf("repository: failed to scan address: %w", err)
		}
		name := address + " " + locality
		if postcode != nil && *postcode != "" {
			name += " " + *postcode
		}
		addresses = append(addresses, models.Address{
			Name:      name,
			GnafPID:   gnafPID,
			Longitude: lon,
			Latitude:  lat,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return addresses, nil
}

// SuburbCounts maps state -> locality name -> address count.
type SuburbCounts map[string]map[string]int

// GetCountsBySuburb counts addresses per (state, locality).
func (r *Repository) GetCountsBySuburb(ctx context.Context) (SuburbCounts, error) {
	sql := fmt.Sprintf(`
		SELECT state, locality_name, COUNT(*)
		FROM %s
		GROUP BY state, locality_name
	`, r.table())

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute count query: %w", err)
	}
	defer rows.Close()

	counts := SuburbCounts{}
	for rows.Next() {
		var (
			state, locality string
			count           int
		)
		if err := rows.Scan(&state, &locality, &count); err != nil {
			return nil, fmt.Errorf("repository: failed to scan count: %w", err)
		}
		if counts[state] == nil {
			counts[state] = map[string]int{}
		}
		counts[state][locality] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return counts, nil
}
