package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/reviews"
	"github.com/rendis/yelptap/internal/engine/session"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/report"
	"github.com/rendis/yelptap/internal/tui"
)

func runSearch(args []string) error {
	return runSession(model.ModeVariants, args)
}

func runReviews(args []string) error {
	return runSession(model.ModeReviews, args)
}

func runSession(mode model.Mode, args []string) error {
	params := model.SearchParams{Mode: mode}
	var keywordsStr string
	var noCSV bool

	name := "search"
	if mode == model.ModeReviews {
		name = "reviews"
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&params.WebURL, "url", "", "Web search URL or its query string (required)")
	fs.StringVar(&params.OutputDir, "output", ".", "Output directory for session files")
	fs.StringVar(&params.CSVPath, "csv", "", "CSV report path (default: next to the .db)")
	fs.BoolVar(&noCSV, "no-csv", false, "Skip the CSV report")
	fs.BoolVar(&params.Upload, "upload", false, "Upload the report and .db to S3 (S3_* settings)")
	if mode == model.ModeVariants {
		fs.StringVar(&keywordsStr, "keywords", "", "Comma-separated keywords; each adds a term variant")
		fs.IntVar(&params.Concurrency, "concurrency", 1, "Variants fetched in parallel")
	} else {
		fs.StringVar(&keywordsStr, "keywords", "", "Comma-separated review keywords (default: REVIEW_KEYWORDS)")
	}

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yelptap %s [flags]\n\nFlags:\n", name)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		if mode == model.ModeVariants {
			fmt.Fprintf(os.Stderr, "  yelptap search -url 'https://www.yelp.com/search?find_desc=Food&find_loc=Boston' -keywords vegan,halal\n")
		} else {
			fmt.Fprintf(os.Stderr, "  yelptap reviews -url 'find_desc=Bars&find_loc=Austin' -keywords charity,fundraiser\n")
		}
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if params.WebURL == "" {
		return fmt.Errorf("-url is required")
	}
	params.Keywords = config.SplitList(keywordsStr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(params.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	paths := session.NewPaths(params.OutputDir, time.Now())
	params.DBPath = paths.DB
	if params.CSVPath == "" && !noCSV {
		params.CSVPath = paths.CSV
	}
	if noCSV {
		params.CSVPath = ""
	}

	logFile, err := os.OpenFile(paths.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)

	fmt.Fprintf(os.Stderr, "Log: %s\n", paths.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	apiStats := &yelp.Stats{}
	reviewStats := &reviews.Stats{}
	startTime := time.Now()

	done := make(chan struct{})
	go reportProgress(mode, apiStats, reviewStats, startTime, logger, done)

	res, err := session.Run(ctx, cfg, params, session.Options{
		Logger:      logger,
		APIStats:    apiStats,
		ReviewStats: reviewStats,
	})
	close(done)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Printf("ERROR %v", err)
		return err
	}

	fmt.Println(report.Table(res.Entries, mode))

	duration := time.Since(startTime).Truncate(time.Second)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  YelpTap Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Query:      %s\n", res.Run.APIQuery)
	if len(res.Run.Keywords) > 0 {
		fmt.Fprintf(os.Stderr, "  Keywords:   %s\n", strings.Join(res.Run.Keywords, ", "))
	}
	fmt.Fprintf(os.Stderr, "  Businesses: %d\n", len(res.Entries))
	fmt.Fprintf(os.Stderr, "  Pages:      %d\n", apiStats.Pages.Load())
	if mode == model.ModeReviews {
		fmt.Fprintf(os.Stderr, "  Misses:     %d\n", reviewStats.Misses.Load())
	}
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", res.DBPath)
	if res.CSVPath != "" {
		fmt.Fprintf(os.Stderr, "  CSV:        %s\n", res.CSVPath)
	}
	for _, key := range res.UploadKeys {
		fmt.Fprintf(os.Stderr, "  Uploaded:   s3://%s/%s\n", cfg.S3Bucket, key)
	}
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", paths.Log)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	tui.SaveRecent(res.DBPath, res.Run.WebQuery)
	return nil
}

// reportProgress redraws a stderr status line every 2s and logs every 10s
// until done closes.
func reportProgress(mode model.Mode, api *yelp.Stats, rev *reviews.Stats, start time.Time, logger *log.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	logTicker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer logTicker.Stop()

	line := func() string {
		elapsed := time.Since(start).Truncate(time.Second)
		if mode == model.ModeReviews && rev.BusinessesTotal.Load() > 0 {
			return fmt.Sprintf("[%d/%d businesses] %d requests | %d misses | %s",
				rev.BusinessesDone.Load(), rev.BusinessesTotal.Load(),
				rev.Requests.Load(), rev.Misses.Load(), elapsed)
		}
		return fmt.Sprintf("[%d/%d variants] %d pages | %d businesses | %d errors | %d rate-limited | %s",
			api.VariantsDone.Load(), api.VariantsTotal.Load(), api.Pages.Load(),
			api.Businesses.Load(), api.Errors.Load(), api.RateLimits.Load(), elapsed)
	}

	for {
		select {
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r%s", line())
		case <-logTicker.C:
			logger.Printf("PROGRESS %s", line())
		case <-done:
			return
		}
	}
}
