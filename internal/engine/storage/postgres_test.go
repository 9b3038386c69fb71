package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rendis/yelptap/internal/model"
)

func TestPostgresSaveRun(t *testing.T) {
	url := os.Getenv("YELPTAP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("YELPTAP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := ConnectPostgres(ctx, url)
	if err != nil {
		t.Fatalf("ConnectPostgres: %v", err)
	}
	defer s.Close()

	run := model.NewRun(model.ModeVariants, "find_desc=Food", "term=Food", "Food", []string{"vegan"}, time.Now())
	entries := []model.Entry{entry("a", 2), entry("b", 1)}

	// Saving twice replaces the first copy.
	for i := 0; i < 2; i++ {
		if err := s.SaveRun(ctx, run, entries); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM yelptap_results WHERE run_id = $1`, run.ID).Scan(&n); err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
	s.pool.Exec(ctx, `DELETE FROM yelptap_runs WHERE id = $1`, run.ID)
}
