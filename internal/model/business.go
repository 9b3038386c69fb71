package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Business is one search result decoded from an API page.
// Identity is Name + URL; everything else is optional.
type Business struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Rating       float64 `json:"rating,omitempty"`
	ReviewCount  int     `json:"review_count,omitempty"`
	Price        string  `json:"price,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Categories   string  `json:"categories,omitempty"`
	Address      string  `json:"address,omitempty"`
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
	Transactions string  `json:"transactions,omitempty"`
}

// Key returns the identity used to merge a business across pages and variants.
func (b Business) Key() Key {
	return Key{Name: b.Name, URL: b.URL}
}

// HasCoords reports whether the API returned a location for the business.
func (b Business) HasCoords() bool {
	return b.Lat != 0 || b.Lng != 0
}

// Key identifies a business in an aggregation table.
type Key struct {
	Name string
	URL  string
}

// CanonicalURL drops everything from the first '?' on.
func CanonicalURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Entry is one row of an aggregation table.
type Entry struct {
	Business
	Count int `json:"count"`
}

// Mode tells what an entry count means.
type Mode string

const (
	// ModeVariants counts the keyword variants a business appeared in.
	ModeVariants Mode = "variants"
	// ModeReviews sums per-keyword review search hits on the business page.
	ModeReviews Mode = "reviews"
)

// Run describes one search session as persisted by storage.
type Run struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	WebQuery   string    `json:"web_query"`
	APIQuery   string    `json:"api_query"`
	Term       string    `json:"term"`
	Keywords   []string  `json:"keywords"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRun starts a run with a fresh identifier.
func NewRun(mode Mode, webQuery, apiQuery, term string, keywords []string, startedAt time.Time) Run {
	return Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		WebQuery:  webQuery,
		APIQuery:  apiQuery,
		Term:      term,
		Keywords:  keywords,
		StartedAt: startedAt,
	}
}

// SearchParams holds all configuration for a search session.
type SearchParams struct {
	WebURL      string
	Keywords    []string
	Mode        Mode
	Concurrency int
	OutputDir   string
	DBPath      string
	CSVPath     string
	Upload      bool
}
