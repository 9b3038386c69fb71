package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendis/yelptap/internal/model"
)

// PostgresStore mirrors runs into a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, pings it and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS yelptap_runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			web_query TEXT,
			api_query TEXT NOT NULL,
			term TEXT,
			keywords TEXT[],
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS yelptap_results (
			run_id TEXT NOT NULL REFERENCES yelptap_runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			count INTEGER NOT NULL,
			yelp_id TEXT,
			rating DOUBLE PRECISION,
			review_count INTEGER,
			price TEXT,
			categories TEXT,
			address TEXT,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			PRIMARY KEY (run_id, name, url)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveRun replaces any earlier copy of the run and bulk-copies its entries.
func (s *PostgresStore) SaveRun(ctx context.Context, run model.Run, entries []model.Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM yelptap_runs WHERE id = $1`, run.ID); err != nil {
		return fmt.Errorf("clearing run: %w", err)
	}

	var finished *time.Time
	if !run.FinishedAt.IsZero() {
		finished = &run.FinishedAt
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO yelptap_runs (id, mode, web_query, api_query, term, keywords, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, string(run.Mode), run.WebQuery, run.APIQuery, run.Term, run.Keywords, run.StartedAt, finished,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			run.ID, e.Name, e.URL, e.Count, e.ID, e.Rating, e.ReviewCount,
			e.Price, e.Categories, e.Address, e.Lat, e.Lng,
		})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"yelptap_results"},
		[]string{"run_id", "name", "url", "count", "yelp_id", "rating", "review_count",
			"price", "categories", "address", "lat", "lng"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
