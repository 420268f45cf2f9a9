// Package playbook implements the structured support flows: a static registry of
// playbook definitions and the engine that walks a session through vent, triage and plan.
package playbook

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel playbook ids reported for turns handled outside the registry.
const (
	CrisisPlaybookID  = "crisis"
	GenericPlaybookID = "generic"
)

// Registry defaults applied when the YAML leaves them unset.
const (
	DefaultMaxActions    = 6
	DefaultMaxResources  = 5
	DefaultPerQueryLimit = 2
)

//go:embed playbooks.yaml
var defaultRegistryYAML []byte

var (
	ErrNoFallback        = errors.New("registry has no fallback playbook")
	ErrDuplicatePlaybook = errors.New("duplicate playbook id")
	ErrReservedID        = errors.New("playbook id is reserved")
	ErrEmptyPool         = errors.New("playbook has an empty text pool")
	ErrMissingKeywords   = errors.New("non-fallback playbook has no keywords")
)

// Override appends Actions when Keyword occurs in the message.
type Override struct {
	Keyword string   `yaml:"keyword"`
	Actions []string `yaml:"actions"`
}

// Definition is one playbook. Immutable after the registry is built.
type Definition struct {
	ID                string     `yaml:"id"`
	Fallback          bool       `yaml:"fallback"`
	Keywords          []string   `yaml:"keywords"`
	ValidationLines   []string   `yaml:"validation_lines"`
	TriageQuestions   []string   `yaml:"triage_questions"`
	FollowUpQuestions []string   `yaml:"follow_up_questions"`
	ActionTitle       string     `yaml:"action_title"`
	BaseActions       []string   `yaml:"base_actions"`
	ResourceQueries   []string   `yaml:"resource_queries"`
	ActionOverrides   []Override `yaml:"action_overrides"`
}

// ResourceHint widens resource search with Queries when any of Keywords is in the message.
type ResourceHint struct {
	Keywords []string `yaml:"keywords"`
	Queries  []string `yaml:"queries"`
}

// CrisisConfig controls the resources and title of crisis turns.
type CrisisConfig struct {
	ActionTitle      string   `yaml:"action_title"`
	Queries          []string `yaml:"queries"`
	PerQueryLimit    int      `yaml:"per_query_limit"`
	ExcludeNameTerms []string `yaml:"exclude_name_terms"`
}

// Registry is the ordered table of playbook definitions. Safe for concurrent reads.
type Registry struct {
	MaxActions    int            `yaml:"max_actions"`
	MaxResources  int            `yaml:"max_resources"`
	PerQueryLimit int            `yaml:"per_query_limit"`
	ResourceHints []ResourceHint `yaml:"resource_hints"`
	Crisis        CrisisConfig   `yaml:"crisis"`
	Playbooks     []Definition   `yaml:"playbooks"`

	byID     map[string]int
	fallback int
}

// ParseRegistry decodes and validates a YAML registry.
func ParseRegistry(raw []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to parse playbook registry: %w", err)
	}
	if err := r.init(); err != nil {
		return nil, err
	}
	return &r, nil
}

// DefaultRegistry returns the built-in registry. It panics if the embedded table is invalid.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRegistryYAML)
	if err != nil {
		panic(fmt.Sprintf("playbook: embedded registry is invalid: %v", err))
	}
	return r
}

// LoadRegistryFile reads a registry from path.
func LoadRegistryFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook registry %s: %w", path, err)
	}
	r, err := ParseRegistry(raw)
	if err != nil {
		return nil, err
	}
	slog.Info("playbook.LoadRegistryFile: registry loaded", "file", path, "playbooks", len(r.Playbooks))
	return r, nil
}

func (r *Registry) init() error {
	if r.MaxActions <= 0 {
		r.MaxActions = DefaultMaxActions
	}
	if r.MaxResources <= 0 {
		r.MaxResources = DefaultMaxResources
	}
	if r.PerQueryLimit <= 0 {
		r.PerQueryLimit = DefaultPerQueryLimit
	}
	if r.Crisis.PerQueryLimit <= 0 {
		r.Crisis.PerQueryLimit = r.PerQueryLimit
	}
	if r.Crisis.ActionTitle == "" {
		r.Crisis.ActionTitle = "Immediate support steps"
	}

	r.byID = make(map[string]int, len(r.Playbooks))
	r.fallback = -1
	for i, d := range r.Playbooks {
		switch {
		case d.ID == "":
			return fmt.Errorf("playbook %d has no id", i)
		case d.ID == CrisisPlaybookID || d.ID == GenericPlaybookID:
			return fmt.Errorf("%w: %s", ErrReservedID, d.ID)
		case len(d.ValidationLines) == 0 || len(d.TriageQuestions) == 0 || len(d.FollowUpQuestions) == 0:
			return fmt.Errorf("%w: %s", ErrEmptyPool, d.ID)
		}
		if _, dup := r.byID[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlaybook, d.ID)
		}
		r.byID[d.ID] = i

		if d.Fallback {
			if r.fallback < 0 {
				r.fallback = i
			}
			continue
		}
		if len(d.Keywords) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingKeywords, d.ID)
		}
	}
	if r.fallback < 0 {
		return ErrNoFallback
	}
	return nil
}

// Get returns the definition with the given id.
func (r *Registry) Get(id string) (*Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.Playbooks[i], true
}

// Fallback returns the general definition used when nothing else matches.
func (r *Registry) Fallback() *Definition {
	return &r.Playbooks[r.fallback]
}

// Detect scores every non-fallback playbook by the number of its keywords found in
// message. The first playbook with the highest score wins; with no hits it returns the
// fallback and zero.
func (r *Registry) Detect(message string) (*Definition, int) {
	lower := strings.ToLower(message)
	best := r.Fallback()
	bestScore := 0
	for i := range r.Playbooks {
		d := &r.Playbooks[i]
		if d.Fallback {
			continue
		}
		score := 0
		for _, kw := range d.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best, bestScore
}

// ResourceQueries returns the definition's queries plus any hinted by the message.
func (r *Registry) ResourceQueries(d *Definition, message string) []string {
	queries := append([]string(nil), d.ResourceQueries...)
	lower := strings.ToLower(message)
	for _, hint := range r.ResourceHints {
		for _, kw := range hint.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				queries = append(queries, hint.Queries...)
				break
			}
		}
	}
	return queries
}

// BuildActions starts from the base actions, appends the extras of every override whose
// keyword is in message, then truncates to limit.
func (d *Definition) BuildActions(message string, limit int) []string {
	actions := append([]string(nil), d.BaseActions...)
	lower := strings.ToLower(message)
	for _, o := range d.ActionOverrides {
		if o.Keyword != "" && strings.Contains(lower, strings.ToLower(o.Keyword)) {
			actions = append(actions, o.Actions...)
		}
	}
	return truncate(actions, limit)
}

func truncate(items []string, limit int) []string {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
