package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/reviews"
	"github.com/rendis/yelptap/internal/engine/storage"
	"github.com/rendis/yelptap/internal/engine/translate"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
)

const webURL = "https://www.yelp.com/search?find_desc=Food&find_loc=Boston%2C+MA&ns=1"

// apiByTerm serves one page of businesses per decoded term.
func apiByTerm(results map[string][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":"TOKEN_MISSING","description":"no token"}}`)
			return
		}
		names := results[r.URL.Query().Get("term")]
		businesses := make([]map[string]any, 0, len(names))
		for _, n := range names {
			businesses = append(businesses, map[string]any{
				"name": n,
				"url":  "https://www.yelp.com/biz/" + n + "?adjust_creative=abc",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"total": len(names), "businesses": businesses})
	}
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIKey:         "test-key",
		APIURL:         apiURL,
		WebURL:         "https://www.yelp.com",
		OpenAtZone:     "UTC",
		HTTPTimeout:    5 * time.Second,
		ReviewDelay:    time.Millisecond,
		ReviewSelector: reviews.DefaultSelector,
		ReviewKeywords: []string{"charity"},
	}
}

func TestRunVariants(t *testing.T) {
	api := httptest.NewServer(apiByTerm(map[string][]string{
		"Food vegan": {"a", "b"},
		"Food halal": {"a"},
	}))
	defer api.Close()

	dir := t.TempDir()
	paths := NewPaths(dir, time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC))
	params := model.SearchParams{
		WebURL:      webURL,
		Keywords:    []string{"vegan", "halal"},
		Concurrency: 2,
		DBPath:      paths.DB,
		CSVPath:     paths.CSV,
	}
	stats := &yelp.Stats{}

	res, err := Run(context.Background(), testConfig(api.URL), params, Options{APIStats: stats})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Entries) != 2 || res.Entries[0].Name != "a" || res.Entries[0].Count != 2 || res.Entries[1].Count != 1 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if res.Entries[0].URL != "https://www.yelp.com/biz/a" {
		t.Errorf("url = %q", res.Entries[0].URL)
	}
	if res.Run.Mode != model.ModeVariants || res.Run.Term != "Food" {
		t.Errorf("run = %+v", res.Run)
	}
	if !strings.HasPrefix(res.Run.APIQuery, api.URL+"?&term=Food&location=Boston,+MA") {
		t.Errorf("api query = %q", res.Run.APIQuery)
	}
	if stats.VariantsDone.Load() != 2 || stats.Pages.Load() != 2 {
		t.Errorf("stats variants=%d pages=%d", stats.VariantsDone.Load(), stats.Pages.Load())
	}

	if filepath.Base(paths.DB) != "yelptap_20240110_153000.db" {
		t.Errorf("db path = %s", paths.DB)
	}
	store, err := storage.NewStore(res.DBPath)
	if err != nil {
		t.Fatalf("reopening db: %v", err)
	}
	defer store.Close()
	run, entries, err := store.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if run.ID != res.Run.ID || len(entries) != 2 {
		t.Errorf("stored run %s with %d entries", run.ID, len(entries))
	}

	csvData, err := os.ReadFile(res.CSVPath)
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if lines := strings.Count(string(csvData), "\n"); lines != 3 {
		t.Errorf("csv lines = %d", lines)
	}
}

func TestRunReviews(t *testing.T) {
	api := httptest.NewServer(apiByTerm(map[string][]string{"Food": {"a", "b", "c"}}))
	defer api.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits := map[string]int{"/biz/a": 2, "/biz/c": 5}
		n, ok := hits[r.URL.Path]
		if !ok || r.URL.Query().Get("q") != "charity" {
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><div class="feed"><div class="feed_filters"><h3 class="feed_search-results">%d results</h3></div></div></body></html>`, n)
	}))
	defer site.Close()

	cfg := testConfig(api.URL)
	cfg.WebURL = site.URL
	rstats := &reviews.Stats{}

	res, err := Run(context.Background(), cfg, model.SearchParams{WebURL: webURL, Mode: model.ModeReviews}, Options{
		ReviewStats:     rstats,
		ReviewTransport: site.Client().Transport,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		got = append(got, fmt.Sprintf("%s=%d", e.Name, e.Count))
	}
	if fmt.Sprint(got) != "[c=5 a=2 b=0]" {
		t.Errorf("entries = %v", got)
	}
	if res.Run.Keywords[0] != "charity" || rstats.BusinessesDone.Load() != 3 {
		t.Errorf("keywords=%v done=%d", res.Run.Keywords, rstats.BusinessesDone.Load())
	}
	if res.DBPath != "" {
		t.Errorf("db written without DBPath: %s", res.DBPath)
	}
}

func TestRunRequiresAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	if _, err := Run(context.Background(), cfg, model.SearchParams{WebURL: webURL}, Options{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("want ErrNoAPIKey, got %v", err)
	}
}

func TestRunInvalidQueryWritesNothing(t *testing.T) {
	dir := t.TempDir()
	params := model.SearchParams{
		WebURL: "find_desc=Food&l=g:1,2,3",
		DBPath: filepath.Join(dir, "x.db"),
	}
	_, err := Run(context.Background(), testConfig("http://127.0.0.1:1"), params, Options{})
	if !errors.Is(err, translate.ErrInvalidQuery) {
		t.Fatalf("want ErrInvalidQuery, got %v", err)
	}
	if _, statErr := os.Stat(params.DBPath); !os.IsNotExist(statErr) {
		t.Errorf("db file exists after failure")
	}
}

func TestRunAPIErrorWritesNothing(t *testing.T) {
	api := httptest.NewServer(apiByTerm(nil))
	defer api.Close()

	cfg := testConfig(api.URL)
	cfg.APIKey = "wrong"
	params := model.SearchParams{WebURL: webURL, DBPath: filepath.Join(t.TempDir(), "x.db")}

	_, err := Run(context.Background(), cfg, params, Options{})
	var apiErr *yelp.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "TOKEN_MISSING" {
		t.Fatalf("want APIError, got %v", err)
	}
	if _, statErr := os.Stat(params.DBPath); !os.IsNotExist(statErr) {
		t.Errorf("db file exists after failure")
	}
}

func TestRunUploadNeedsS3(t *testing.T) {
	api := httptest.NewServer(apiByTerm(map[string][]string{"Food": {"a"}}))
	defer api.Close()

	_, err := Run(context.Background(), testConfig(api.URL), model.SearchParams{WebURL: webURL, Upload: true}, Options{})
	if err == nil || !strings.Contains(err.Error(), "S3_ENDPOINT") {
		t.Fatalf("want S3 config error, got %v", err)
	}
}
