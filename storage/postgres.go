package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"rent-estimator/models"
	"rent-estimator/utils"
)

// PostgresStore persists listings to PostgreSQL and serves comparables
// lookups straight from SQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, retrying the ping with
// retry, runs schema migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id                BIGINT        PRIMARY KEY,
			title             TEXT          NOT NULL DEFAULT '',
			city              VARCHAR(100)  NOT NULL,
			price             NUMERIC(12,2) NOT NULL,
			bedrooms          INTEGER       NOT NULL DEFAULT 0,
			bathrooms         INTEGER       NOT NULL DEFAULT 0,
			size              NUMERIC(10,2) NOT NULL DEFAULT 0,
			furnishing_status VARCHAR(30)   NOT NULL DEFAULT '',
			tenant_preferred  VARCHAR(30)   NOT NULL DEFAULT '',
			area_type         VARCHAR(30)   NOT NULL DEFAULT '',
			available         BOOLEAN       NOT NULL DEFAULT TRUE,
			created_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price      ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_city       ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_available  ON listings(available);
	`)
	return err
}

// Clear deletes all existing listings from the table.
func (ps *PostgresStore) Clear(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, "DELETE FROM listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-upserts listings keyed by id.
func (ps *PostgresStore) Write(ctx context.Context, listings []*models.Listing) error {
	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := min(i+batchSize, len(listings))
		if err := ps.insertBatch(ctx, listings[i:end]); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	return nil
}

const listingColumns = 11

func (ps *PostgresStore) insertBatch(ctx context.Context, batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		ph := make([]string, listingColumns)
		for k := range ph {
			ph[k] = fmt.Sprintf("$%d", base+k+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.ID, l.Title, l.City, l.RoundedPrice(),
			l.Bedrooms, l.Bathrooms, l.Size,
			l.FurnishingStatus, l.TenantPreferred, l.AreaType, l.Available)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (id, title, city, price, bedrooms, bathrooms, size,
			furnishing_status, tenant_preferred, area_type, available)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			city = EXCLUDED.city,
			price = EXCLUDED.price,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			size = EXCLUDED.size,
			furnishing_status = EXCLUDED.furnishing_status,
			tenant_preferred = EXCLUDED.tenant_preferred,
			area_type = EXCLUDED.area_type,
			available = EXCLUDED.available
	`, strings.Join(valueStrings, ","))

	_, err := ps.db.ExecContext(ctx, query, valueArgs...)
	return err
}

// comparablesSQL builds the lookup query and its arguments. Split out so the
// predicate construction can be tested without a database.
func comparablesSQL(q models.ComparableQuery) (string, []any) {
	where := []string{"available = TRUE", "price BETWEEN $1 AND $2"}
	args := []any{q.MinPrice, q.MaxPrice, q.Target}

	add := func(col string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	f := q.Filters
	if models.Specific(f.City) {
		add("city", f.City)
	}
	if models.Specific(f.FurnishingStatus) {
		add("furnishing_status", f.FurnishingStatus)
	}
	if models.Specific(f.TenantPreferred) {
		add("tenant_preferred", f.TenantPreferred)
	}
	if f.Bedrooms > 0 {
		add("bedrooms", f.Bedrooms)
	}
	if f.Bathrooms > 0 {
		add("bathrooms", f.Bathrooms)
	}

	args = append(args, q.Limit)
	query := fmt.Sprintf(`
		SELECT id, title, city, price, bedrooms, bathrooms, size,
			furnishing_status, tenant_preferred, area_type, available, created_at
		FROM listings
		WHERE %s
		ORDER BY ABS(price - $3), id
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))
	return query, args
}

// FindComparables runs the comparables query.
func (ps *PostgresStore) FindComparables(ctx context.Context, q models.ComparableQuery) ([]*models.Listing, error) {
	query, args := comparablesSQL(q)
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find comparables: %w", err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0, q.Limit)
	for rows.Next() {
		l := &models.Listing{}
		var price decimal.Decimal
		var createdAt time.Time
		if err := rows.Scan(
			&l.ID, &l.Title, &l.City, &price, &l.Bedrooms, &l.Bathrooms, &l.Size,
			&l.FurnishingStatus, &l.TenantPreferred, &l.AreaType, &l.Available, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Price = price.InexactFloat64()
		l.CreatedAt = createdAt
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
