// Package resources holds the catalog of support resources and its ranked keyword search.
package resources

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultLimit is the result cap callers use when the client does not pick one.
const DefaultLimit = 5

// placeholderID is used when a name yields no alphanumeric characters.
const placeholderID = "resource"

// Record is one support resource. Read-only after load.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	URL         string   `json:"url"`
	Location    string   `json:"location,omitempty"`
}

type catalog struct {
	Resources []Record `json:"resources"`
}

var nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)

// BuildResourceID derives a stable identifier from a display name.
func BuildResourceID(name string) string {
	id := nonAlnumRE.ReplaceAllString(strings.ToLower(name), "-")
	id = strings.Trim(id, "-")
	if id == "" {
		return placeholderID
	}
	return id
}

// Directory is an in-memory resource catalog. It is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]Record
	loaded  bool
	lastErr error
}

// NewDirectory returns an empty, unloaded directory.
func NewDirectory() *Directory {
	return &Directory{byID: make(map[string]Record)}
}

// Load reads the catalog at path. It does nothing if the directory is already loaded.
func (d *Directory) Load(path string) error {
	if d.IsLoaded() {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return d.fail(fmt.Errorf("failed to read resource catalog %s: %w", path, err))
	}
	return d.LoadBytes(raw)
}

// LoadBytes parses a catalog given as {"resources": [...]} or a bare array.
// It does nothing if the directory is already loaded.
func (d *Directory) LoadBytes(raw []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return nil
	}

	records, err := parseCatalog(raw)
	if err != nil {
		d.lastErr = err
		slog.Warn("Directory.LoadBytes: resource catalog unusable, search will return nothing", "error", err)
		return err
	}

	d.records = make([]Record, 0, len(records))
	d.byID = make(map[string]Record, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			r.ID = BuildResourceID(r.Name)
		}
		d.records = append(d.records, r)
		d.byID[r.ID] = r
	}
	d.loaded = true
	d.lastErr = nil
	slog.Debug("Directory.LoadBytes: resource catalog loaded", "count", len(d.records))
	return nil
}

func parseCatalog(raw []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(raw))
	var records []Record
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to parse resource catalog: %w", err)
		}
	} else {
		var c catalog
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("failed to parse resource catalog: %w", err)
		}
		records = c.Resources
	}
	return records, nil
}

func (d *Directory) fail(err error) error {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
	slog.Warn("Directory.Load: resource catalog unusable, search will return nothing", "error", err)
	return err
}

// IsLoaded reports whether a catalog has been loaded.
func (d *Directory) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// LastError returns the error from the most recent failed load, if any.
func (d *Directory) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Len returns the number of loaded resources.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Get returns the resource with the given id.
func (d *Directory) Get(id string) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byID[id]
	return r, ok
}

type scored struct {
	record Record
	score  int
}

// Search ranks resources against query: name +3, description +2, any category +1,
// location +1. Results are ordered by score then name and capped at limit; a
// non-positive limit yields no results.
func (d *Directory) Search(query string, limit int) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []Record{}
	}

	d.mu.RLock()
	candidates := make([]scored, 0)
	for _, r := range d.records {
		if s := score(r, q); s > 0 {
			candidates = append(candidates, scored{record: r, score: s})
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].record.Name < candidates[j].record.Name
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Record, len(candidates))
	for i, c := range candidates {
		out[i] = c.record
	}
	return out
}

func score(r Record, q string) int {
	s := 0
	if strings.Contains(strings.ToLower(r.Name), q) {
		s += 3
	}
	if strings.Contains(strings.ToLower(r.Description), q) {
		s += 2
	}
	for _, c := range r.Categories {
		if strings.Contains(strings.ToLower(c), q) {
			s++
			break
		}
	}
	if r.Location != "" && strings.Contains(strings.ToLower(r.Location), q) {
		s++
	}
	return s
}
