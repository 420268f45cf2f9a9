package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BTreeMap/Lantern/data"
)

func TestBuildResourceID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Student Wellness Centre!", "student-wellness-centre"},
		{"  UVSS -- Clubs & Societies ", "uvss-clubs-societies"},
		{"Here2Talk", "here2talk"},
		{"!!!", "resource"},
		{"", "resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildResourceID(tt.name)
			if got != tt.want {
				t.Errorf("BuildResourceID(%q) = %q, want %q", tt.name, got, tt.want)
			}
			if again := BuildResourceID(got); again != got {
				t.Errorf("BuildResourceID is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func loadDirectory(t *testing.T, raw string) *Directory {
	t.Helper()
	d := NewDirectory()
	if err := d.LoadBytes([]byte(raw)); err != nil {
		t.Fatalf("LoadBytes failed: %v", err)
	}
	return d
}

func TestSearchTieBreaksByName(t *testing.T) {
	d := loadDirectory(t, `[
		{"name": "Zen Room", "description": "", "categories": []},
		{"name": "Aid Desk", "description": "", "categories": []}
	]`)

	// "e" is in both names, so both score 3.
	got := d.Search("e", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Name != "Aid Desk" || got[1].Name != "Zen Room" {
		t.Errorf("unexpected order: %q, %q", got[0].Name, got[1].Name)
	}
}

func TestSearchScoring(t *testing.T) {
	d := loadDirectory(t, `{"resources": [
		{"name": "Library", "description": "quiet study space", "categories": ["study", "study rooms"]},
		{"name": "Study Hall", "description": "drop in study", "categories": []},
		{"name": "Gym", "description": "", "categories": ["fitness"], "location": "Study block"},
		{"name": "Cafe", "description": "coffee", "categories": ["food"]}
	]}`)

	got := d.Search("  STUDY ", 10)
	want := []string{"Study Hall", "Library", "Gym"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("result %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSearchLimitAndEmpty(t *testing.T) {
	d := NewDirectory()
	if err := d.LoadBytes(data.Resources); err != nil {
		t.Fatalf("embedded catalog failed to load: %v", err)
	}

	if got := d.Search("student", 2); len(got) > 2 {
		t.Errorf("expected at most 2 results, got %d", len(got))
	}
	if got := d.Search("   ", 5); len(got) != 0 {
		t.Errorf("expected no results for blank query, got %d", len(got))
	}
	if got := d.Search("zzzz-nothing", 5); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
	r, ok := d.Get("student-wellness-centre")
	if !ok || r.Name != "Student Wellness Centre" {
		t.Errorf("expected derived id lookup to work, got %+v (ok=%v)", r, ok)
	}
}

func TestSearchNonPositiveLimit(t *testing.T) {
	d := loadDirectory(t, `[
		{"name": "Aid Desk"},
		{"name": "Zen Room"},
		{"name": "Art Hub"}
	]`)

	for _, limit := range []int{0, -1} {
		got := d.Search("a", limit)
		if got == nil || len(got) != 0 {
			t.Errorf("Search(%q, %d) = %+v, want an empty list", "a", limit, got)
		}
	}
	if got := d.Search("a", 1); len(got) != 1 {
		t.Errorf("expected limit 1 to return 1 result, got %d", len(got))
	}
}

func TestSearchUnloadedDirectory(t *testing.T) {
	d := NewDirectory()
	if got := d.Search("counselling", 5); len(got) != 0 {
		t.Errorf("unloaded directory returned %d results", len(got))
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	d := loadDirectory(t, `[{"name": "First"}]`)
	if err := d.LoadBytes([]byte(`[{"name": "Second"}, {"name": "Third"}]`)); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("second load must not replace the catalog, got %d records", d.Len())
	}
	if _, ok := d.Get("first"); !ok {
		t.Error("expected original record to remain")
	}
}

func TestLoadEmptyCatalog(t *testing.T) {
	for _, raw := range []string{`{"resources": []}`, `[]`, `{}`} {
		d := NewDirectory()
		if err := d.LoadBytes([]byte(raw)); err != nil {
			t.Errorf("LoadBytes(%s) failed: %v", raw, err)
			continue
		}
		if !d.IsLoaded() || d.LastError() != nil || d.Len() != 0 {
			t.Errorf("LoadBytes(%s): expected loaded empty directory, got loaded=%v len=%d err=%v",
				raw, d.IsLoaded(), d.Len(), d.LastError())
		}
		if got := d.Search("anything", 5); len(got) != 0 {
			t.Errorf("empty catalog returned %d results", len(got))
		}
	}
}

func TestLoadFailures(t *testing.T) {
	d := NewDirectory()
	if err := d.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if d.IsLoaded() || d.LastError() == nil {
		t.Error("failed load should leave directory unloaded with LastError set")
	}

	if err := d.LoadBytes([]byte(`{"resources": [`)); err == nil {
		t.Errorf("expected error for malformed catalog")
	}
	if d.IsLoaded() || d.LastError() == nil {
		t.Error("malformed catalog should leave directory unloaded with LastError set")
	}

	path := filepath.Join(t.TempDir(), "resources.json")
	if err := os.WriteFile(path, []byte(`[{"id": "custom", "name": "Custom Name"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !d.IsLoaded() || d.LastError() != nil {
		t.Error("successful load should clear LastError")
	}
	if _, ok := d.Get("custom"); !ok {
		t.Error("explicit ids must be kept")
	}
}
