package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/yelptap/internal/model"
)

// ErrNoRuns is returned when a database holds no finished run.
var ErrNoRuns = errors.New("no runs recorded")

// Store is a per-session sqlite database of runs and their tallies.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		web_query TEXT,
		api_query TEXT NOT NULL,
		term TEXT,
		keywords TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		count INTEGER NOT NULL,
		yelp_id TEXT,
		rating REAL,
		review_count INTEGER,
		price TEXT,
		phone TEXT,
		categories TEXT,
		address TEXT,
		lat REAL,
		lng REAL,
		distance REAL,
		transactions TEXT,
		UNIQUE(run_id, name, url)
	);
	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id, count);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveRun writes a run and its entries in one transaction.
func (s *Store) SaveRun(ctx context.Context, run model.Run, entries []model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keywords, err := json.Marshal(run.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, mode, web_query, api_query, term, keywords, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, string(run.Mode), run.WebQuery, run.APIQuery, run.Term, string(keywords),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO results
		(run_id, name, url, count, yelp_id, rating, review_count, price, phone,
		 categories, address, lat, lng, distance, transactions)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			run.ID, e.Name, e.URL, e.Count, e.ID, e.Rating, e.ReviewCount, e.Price, e.Phone,
			e.Categories, e.Address, e.Lat, e.Lng, e.Distance, e.Transactions,
		)
		if err != nil {
			return fmt.Errorf("inserting %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, web_query, api_query, term, keywords, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			r                 model.Run
			mode, keywords    string
			started, finished sql.NullString
			webQuery, term    sql.NullString
		)
		if err := rows.Scan(&r.ID, &mode, &webQuery, &r.APIQuery, &term, &keywords, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Mode = model.Mode(mode)
		r.WebQuery = webQuery.String
		r.Term = term.String
		if keywords != "" {
			if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
				return nil, fmt.Errorf("decoding keywords of run %s: %w", r.ID, err)
			}
		}
		r.StartedAt = parseTime(started.String)
		r.FinishedAt = parseTime(finished.String)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*model.Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// LoadEntries returns a run's tally ordered by count desc, then name, then URL.
func (s *Store) LoadEntries(ctx context.Context, runID string) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, url, count, COALESCE(yelp_id,''), COALESCE(rating,0), COALESCE(review_count,0),
		       COALESCE(price,''), COALESCE(phone,''), COALESCE(categories,''), COALESCE(address,''),
		       COALESCE(lat,0), COALESCE(lng,0), COALESCE(distance,0), COALESCE(transactions,'')
		FROM results WHERE run_id = ?
		ORDER BY count DESC, name, url`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.Name, &e.URL, &e.Count, &e.ID, &e.Rating, &e.ReviewCount,
			&e.Price, &e.Phone, &e.Categories, &e.Address,
			&e.Lat, &e.Lng, &e.Distance, &e.Transactions); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadLatest returns the newest run and its entries.
func (s *Store) LoadLatest(ctx context.Context) (*model.Run, []model.Entry, error) {
	run, err := s.LatestRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.LoadEntries(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, entries, nil
}

// Count returns the number of result rows across all runs.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
