package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/storage"
	"github.com/rendis/yelptap/internal/report"
)

func runExport(args []string) error {
	var dbPath, outputPath, formatStr string
	var upload bool

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&formatStr, "format", "csv", "Export format: csv or geojson")
	fs.BoolVar(&upload, "upload", false, "Upload the export to S3 (S3_* settings)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yelptap export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  yelptap export -db ./runs/yelptap_20240110_153000.db\n")
		fmt.Fprintf(os.Stderr, "  yelptap export -db data.db -format geojson -output map.geojson\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+format.Ext())
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	run, entries, err := store.LoadLatest(ctx)
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("run %s has no results", run.ID)
	}

	if err := report.WriteFile(outputPath, format, entries); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d businesses to %s\n", len(entries), outputPath)

	if !upload {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.S3Enabled() {
		return fmt.Errorf("-upload needs S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}
	up, err := report.NewUploader(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL)
	if err != nil {
		return err
	}
	if err := up.EnsureBucket(ctx); err != nil {
		return err
	}
	key, err := up.UploadFile(ctx, outputPath, run.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Uploaded to s3://%s/%s\n", cfg.S3Bucket, key)
	return nil
}
