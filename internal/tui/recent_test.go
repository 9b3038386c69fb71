package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func useRecentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := recentDir
	recentDir = func() string { return filepath.Join(dir, "cfg") }
	t.Cleanup(func() { recentDir = prev })
	return dir
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRecent_NewestFirstWithoutDuplicates(t *testing.T) {
	dir := useRecentDir(t)
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	touch(t, a)
	touch(t, b)

	SaveRecent(a, "find_desc=Pizza")
	SaveRecent(b, "")
	SaveRecent(a, "")

	got := LoadRecent()
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].Path != a || got[1].Path != b {
		t.Errorf("order = [%s %s], want [a b]", got[0].Path, got[1].Path)
	}
	if got[0].Query != "find_desc=Pizza" {
		t.Errorf("query = %q, want it kept from the first save", got[0].Query)
	}
}

func TestLoadRecent_DropsMissingFiles(t *testing.T) {
	dir := useRecentDir(t)
	a := filepath.Join(dir, "a.db")
	gone := filepath.Join(dir, "gone.db")
	touch(t, a)
	touch(t, gone)

	SaveRecent(a, "")
	SaveRecent(gone, "")
	os.Remove(gone)

	got := LoadRecent()
	if len(got) != 1 || got[0].Path != a {
		t.Errorf("entries = %+v, want only %s", got, a)
	}
}

func TestSaveRecent_Capped(t *testing.T) {
	dir := useRecentDir(t)
	for i := 0; i < maxRecent+3; i++ {
		p := filepath.Join(dir, fmt.Sprintf("%02d.db", i))
		touch(t, p)
		SaveRecent(p, "")
	}
	if got := LoadRecent(); len(got) != maxRecent {
		t.Errorf("entries = %d, want %d", len(got), maxRecent)
	}
}

func TestLoadRecent_NoFile(t *testing.T) {
	useRecentDir(t)
	if got := LoadRecent(); got != nil {
		t.Errorf("entries = %v, want nil", got)
	}
}
