// Package session runs one search end to end: translate, fetch, tally,
// persist and report. The CLI and the TUI both drive it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/reviews"
	"github.com/rendis/yelptap/internal/engine/storage"
	"github.com/rendis/yelptap/internal/engine/translate"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/report"
)

// ErrNoAPIKey is returned when no credential is configured.
var ErrNoAPIKey = errors.New("YELP_API_KEY is required")

// Paths are the files a session writes into its output directory.
type Paths struct {
	DB  string
	Log string
	CSV string
}

// NewPaths names session files yelptap_<YYYYMMDD_HHMMSS>.* under dir.
func NewPaths(dir string, now time.Time) Paths {
	base := filepath.Join(dir, "yelptap_"+now.Format("20060102_150405"))
	return Paths{DB: base + ".db", Log: base + ".log", CSV: base + ".csv"}
}

type Options struct {
	Logger      *log.Logger
	APIStats    *yelp.Stats
	ReviewStats *reviews.Stats
	Now         func() time.Time
	// HTTPClient and ReviewTransport override network access in tests.
	HTTPClient      *http.Client
	ReviewTransport http.RoundTripper
	OnVariant       func(v yelp.Variant, found int)
	OnBusiness      func(b model.Business, count int)
}

// Result is what a finished session produced.
type Result struct {
	Run        model.Run
	Entries    []model.Entry
	DBPath     string
	CSVPath    string
	UploadKeys []string
}

// NewTranslator builds a translator from cfg.
func NewTranslator(cfg *config.Config, now func() time.Time) (*translate.Translator, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return translate.New(translate.Options{
		Endpoint:            cfg.APIURL,
		Now:                 now,
		Location:            loc,
		LegacyAttributeJoin: cfg.LegacyAttributes,
	}), nil
}

// Run executes a search described by params. Nothing is written when the
// fetch fails.
func Run(ctx context.Context, cfg *config.Config, params model.SearchParams, opts Options) (*Result, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if params.Mode == "" {
		params.Mode = model.ModeVariants
	}

	tr, err := NewTranslator(cfg, now)
	if err != nil {
		return nil, err
	}
	apiURL, err := tr.Translate(params.WebURL)
	if err != nil {
		return nil, fmt.Errorf("translating: %w", err)
	}
	p, _ := tr.Params(params.WebURL)
	term, _ := p.Get("term")

	keywords := params.Keywords
	if params.Mode == model.ModeReviews && len(keywords) == 0 {
		keywords = cfg.ReviewKeywords
	}

	run := model.NewRun(params.Mode, params.WebURL, apiURL, term, keywords, now())
	logger.Printf("=== Session start: run=%s mode=%s term=%q keywords=%v concurrency=%d ===",
		run.ID, run.Mode, term, keywords, params.Concurrency)
	logger.Printf("API query: %s", apiURL)

	client, err := yelp.NewClient(yelp.ClientOptions{
		Endpoint:   cfg.APIURL,
		Token:      cfg.APIKey,
		ProxyURL:   cfg.ProxyURL,
		Timeout:    cfg.HTTPTimeout,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
		Stats:      opts.APIStats,
	})
	if err != nil {
		return nil, err
	}

	var table *yelp.Table
	switch params.Mode {
	case model.ModeVariants:
		agg := &yelp.Aggregator{
			Fetcher:     client,
			Concurrency: params.Concurrency,
			Logger:      logger,
			Stats:       opts.APIStats,
			OnVariant:   opts.OnVariant,
		}
		table, err = agg.SearchVariants(ctx, apiURL, "", keywords)
	case model.ModeReviews:
		table, err = scanReviews(ctx, cfg, client, apiURL, keywords, logger, opts)
	default:
		return nil, fmt.Errorf("unknown mode %q", params.Mode)
	}
	if err != nil {
		return nil, err
	}

	run.FinishedAt = now()
	res := &Result{Run: run, Entries: table.Entries()}
	logger.Printf("Done: businesses=%d elapsed=%s", len(res.Entries), run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond))

	if err := persist(ctx, cfg, params, res, logger); err != nil {
		return res, err
	}
	return res, nil
}

func scanReviews(ctx context.Context, cfg *config.Config, client *yelp.Client, apiURL string, keywords []string, logger *log.Logger, opts Options) (*yelp.Table, error) {
	businesses, err := client.FetchAll(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	logger.Printf("Scanning reviews of %d businesses for %v", len(businesses), keywords)

	scanner, err := reviews.NewScanner(reviews.Options{
		BaseURL:    cfg.WebURL,
		Selector:   cfg.ReviewSelector,
		Delay:      cfg.ReviewDelay,
		Timeout:    cfg.HTTPTimeout,
		ProxyURL:   cfg.ProxyURL,
		Transport:  opts.ReviewTransport,
		Logger:     logger,
		Stats:      opts.ReviewStats,
		OnBusiness: opts.OnBusiness,
	})
	if err != nil {
		return nil, err
	}
	return scanner.ScanAll(ctx, businesses, keywords)
}

func persist(ctx context.Context, cfg *config.Config, params model.SearchParams, res *Result, logger *log.Logger) error {
	if err := save(ctx, cfg, params, res, logger); err != nil {
		return err
	}

	if params.CSVPath != "" {
		if err := report.WriteFile(params.CSVPath, report.FormatCSV, res.Entries); err != nil {
			return err
		}
		res.CSVPath = params.CSVPath
	}

	if params.Upload {
		return upload(ctx, cfg, res, logger)
	}
	return nil
}

// save writes the run to the session database and, when configured, the
// Postgres mirror. Stores are closed on return so the .db file is complete.
func save(ctx context.Context, cfg *config.Config, params model.SearchParams, res *Result, logger *log.Logger) error {
	var sinks storage.MultiSink

	if params.DBPath != "" {
		store, err := storage.NewStore(params.DBPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
		res.DBPath = params.DBPath
	}

	if cfg.DatabaseURL != "" {
		pg, err := storage.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Printf("WARN postgres unavailable: %v", err)
		} else {
			defer pg.Close()
			sinks = append(sinks, pg)
		}
	}

	if err := sinks.SaveRun(ctx, res.Run, res.Entries); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func upload(ctx context.Context, cfg *config.Config, res *Result, logger *log.Logger) error {
	if !cfg.S3Enabled() {
		return errors.New("upload requested but S3_ENDPOINT/S3_ACCESS_KEY/S3_SECRET_KEY are not set")
	}
	up, err := report.NewUploader(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL)
	if err != nil {
		return err
	}
	if err := up.EnsureBucket(ctx); err != nil {
		return err
	}
	for _, path := range []string{res.CSVPath, res.DBPath} {
		if path == "" {
			continue
		}
		key, err := up.UploadFile(ctx, path, res.Run.ID)
		if err != nil {
			return err
		}
		logger.Printf("UPLOAD %s -> s3://%s/%s", path, cfg.S3Bucket, key)
		res.UploadKeys = append(res.UploadKeys, key)
	}
	return nil
}
