// Package config reads settings from the environment and an optional .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Search API
	APIKey      string
	APIURL      string
	WebURL      string
	HTTPTimeout time.Duration
	ProxyURL    string

	// Translator
	OpenAtZone       string
	LegacyAttributes bool

	// Review scan
	ReviewDelay    time.Duration
	ReviewSelector string
	ReviewKeywords []string

	// Optional Postgres mirror
	DatabaseURL string

	// Optional S3-compatible report upload
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

// Load reads envPath (default ".env") into the environment without
// overriding variables already set, then builds a Config. A missing file is
// fine.
func Load(envPath ...string) (*Config, error) {
	path := ".env"
	if len(envPath) > 0 && envPath[0] != "" {
		path = envPath[0]
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg := &Config{
		APIKey:           getEnv("YELP_API_KEY", ""),
		APIURL:           getEnv("YELP_API_URL", "https://api.yelp.com/v3/businesses/search"),
		WebURL:           getEnv("YELP_WEB_URL", "https://www.yelp.com"),
		HTTPTimeout:      time.Duration(getIntEnv("YELP_HTTP_TIMEOUT_SEC", 15)) * time.Second,
		ProxyURL:         getEnv("PROXY_URL", ""),
		OpenAtZone:       getEnv("YELP_OPEN_AT_TZ", "UTC"),
		LegacyAttributes: getBoolEnv("YELP_LEGACY_ATTRIBUTES", false),
		ReviewDelay:      getDurationMsEnv("REVIEW_DELAY_MS", 500),
		ReviewSelector:   getEnv("REVIEW_SELECTOR", "div.feed div.feed_filters h3.feed_search-results"),
		ReviewKeywords:   SplitList(getEnv("REVIEW_KEYWORDS", "fundraise,nonprofit,non profit,non-profit,charity")),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", "yelptap"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:         getBoolEnv("S3_USE_SSL", true),
	}
	return cfg, nil
}

// Location resolves OpenAtZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.OpenAtZone)
	if err != nil {
		return nil, fmt.Errorf("YELP_OPEN_AT_TZ: %w", err)
	}
	return loc, nil
}

// S3Enabled reports whether enough S3 settings are present to upload.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// SplitList splits a comma list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationMsEnv(key string, defaultMs int) time.Duration {
	return time.Duration(getIntEnv(key, defaultMs)) * time.Millisecond
}
