package yelp

import (
	"sort"
	"sync"

	"github.com/rendis/yelptap/internal/model"
)

// Table tallies businesses by name+URL. Safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	entries map[model.Key]*model.Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[model.Key]*model.Entry)}
}

// Add raises the count of b by n, inserting it on first sight. Later
// sightings fill in optional fields the first one lacked.
func (t *Table) Add(b model.Business, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := b.Key()
	e, ok := t.entries[k]
	if !ok {
		t.entries[k] = &model.Entry{Business: b, Count: n}
		return
	}
	e.Count += n
	if !e.HasCoords() && b.HasCoords() {
		e.Lat, e.Lng = b.Lat, b.Lng
	}
	if e.ID == "" {
		e.ID = b.ID
	}
}

// Count returns the tally for k, zero when absent.
func (t *Table) Count(k model.Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[k]; ok {
		return e.Count
	}
	return 0
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a snapshot ordered by count desc, then name, then URL.
func (t *Table) Entries() []model.Entry {
	t.mu.Lock()
	out := make([]model.Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	t.mu.Unlock()

	SortEntries(out)
	return out
}

// SortEntries orders entries by count desc, then name, then URL.
func SortEntries(entries []model.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.URL < b.URL
	})
}
