package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const maxRecent = 10

// RecentEntry is one session database the user opened or produced.
type RecentEntry struct {
	Path     string    `json:"path"`
	Query    string    `json:"query,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
}

// recentDir is overridden in tests.
var recentDir = func() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = os.TempDir()
	}
	return filepath.Join(cfg, "yelptap")
}

func recentFilePath() string {
	return filepath.Join(recentDir(), "recent.json")
}

// LoadRecent returns remembered sessions, newest first, dropping databases
// that no longer exist.
func LoadRecent() []RecentEntry {
	data, err := os.ReadFile(recentFilePath())
	if err != nil {
		return nil
	}
	var entries []RecentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	kept := entries[:0]
	for _, e := range entries {
		if _, err := os.Stat(e.Path); err == nil {
			kept = append(kept, e)
		}
	}
	return kept
}

// SaveRecent remembers dbPath at the top of the list. query is the web
// search that produced it, if known.
func SaveRecent(dbPath, query string) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		abs = dbPath
	}

	entries := LoadRecent()
	filtered := make([]RecentEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Path != abs {
			filtered = append(filtered, e)
		} else if query == "" {
			query = e.Query
		}
	}

	filtered = append([]RecentEntry{{Path: abs, Query: query, OpenedAt: time.Now()}}, filtered...)
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}

	data, _ := json.MarshalIndent(filtered, "", "  ")
	os.MkdirAll(recentDir(), 0755)
	os.WriteFile(recentFilePath(), data, 0644)
}
