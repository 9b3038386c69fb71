package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"YELP_API_KEY", "YELP_HTTP_TIMEOUT_SEC", "REVIEW_KEYWORDS", "REVIEW_DELAY_MS", "YELP_LEGACY_ATTRIBUTES", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPTimeout != 15*time.Second || cfg.ReviewDelay != 500*time.Millisecond {
		t.Errorf("timeouts = %s, %s", cfg.HTTPTimeout, cfg.ReviewDelay)
	}
	if len(cfg.ReviewKeywords) != 5 || cfg.ReviewKeywords[2] != "non profit" {
		t.Errorf("keywords = %q", cfg.ReviewKeywords)
	}
	if cfg.LegacyAttributes {
		t.Error("legacy attributes on by default")
	}
	if cfg.S3Enabled() {
		t.Error("s3 enabled without credentials")
	}
}

func TestLoadDotEnv(t *testing.T) {
	// godotenv never overrides a variable that is present, even if empty.
	unsetEnv(t, "YELP_API_KEY", "REVIEW_DELAY_MS", "YELP_OPEN_AT_TZ")
	path := filepath.Join(t.TempDir(), ".env")
	body := "YELP_API_KEY=from-file\nREVIEW_DELAY_MS=50\nYELP_OPEN_AT_TZ=America/New_York\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "from-file" || cfg.ReviewDelay != 50*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("location = %v, %v", loc, err)
	}
}

func TestLoadKeepsExistingEnv(t *testing.T) {
	t.Setenv("YELP_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("YELP_API_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.APIKey)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, ,b ,c,")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %q", got)
	}
	if SplitList("") != nil {
		t.Error("want nil for empty")
	}
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "") // restores the old value on cleanup
		os.Unsetenv(k)
	}
}
