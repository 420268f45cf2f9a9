// Package intent matches free text against a static corpus of intents and
// returns a canned response from the best-scoring intent.
package intent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/BTreeMap/Lantern/internal/util"
)

// DefaultThreshold is the minimum confidence Match accepts when callers have no preference.
const DefaultThreshold = 0.5

// Intent is one corpus entry. Read-only after load.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// Match is the result of a successful match.
type Match struct {
	Tag        string   `json:"tag"`
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence"`
	Responses  []string `json:"all_responses,omitempty"`
}

type corpus struct {
	Intents []Intent `json:"intents"`
}

// Matcher scores text against intent patterns. It is safe for concurrent use.
type Matcher struct {
	intents        []Intent
	picker         *util.Picker
	boostKeywords  map[string][]string
	crisisTags     map[string]bool
	crisisFloor    float64
	emotionalFloor float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPicker injects the random source used to choose responses.
func WithPicker(p *util.Picker) Option {
	return func(m *Matcher) {
		if p != nil {
			m.picker = p
		}
	}
}

// WithBoostFloors overrides the crisis and emotional boost floors.
func WithBoostFloors(crisis, emotional float64) Option {
	return func(m *Matcher) {
		m.crisisFloor = crisis
		m.emotionalFloor = emotional
	}
}

// WithBoostKeywords replaces the per-tag boost keyword table.
func WithBoostKeywords(keywords map[string][]string) Option {
	return func(m *Matcher) {
		m.boostKeywords = keywords
	}
}

// NewMatcher parses a JSON corpus. A malformed corpus yields an empty matcher and a warning;
// it never fails.
func NewMatcher(raw []byte, opts ...Option) *Matcher {
	m := &Matcher{
		picker:         util.NewPicker(),
		boostKeywords:  DefaultBoostKeywords,
		crisisTags:     make(map[string]bool, len(DefaultCrisisTags)),
		crisisFloor:    DefaultCrisisFloor,
		emotionalFloor: DefaultEmotionalFloor,
	}
	for _, tag := range DefaultCrisisTags {
		m.crisisTags[tag] = true
	}
	for _, opt := range opts {
		opt(m)
	}

	var c corpus
	if err := json.Unmarshal(raw, &c); err != nil {
		slog.Warn("intent.NewMatcher: failed to parse intent corpus, continuing with no intents", "error", err)
		return m
	}
	m.intents = c.Intents
	slog.Debug("intent.NewMatcher: corpus loaded", "intents", len(m.intents))
	return m
}

// NewMatcherFromFile loads the corpus at path. A missing or unreadable file yields an
// empty matcher and a warning.
func NewMatcherFromFile(path string, opts ...Option) *Matcher {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("intent.NewMatcherFromFile: intent corpus not readable, continuing with no intents", "path", path, "error", err)
		raw = []byte(`{"intents":[]}`)
	}
	return NewMatcher(raw, opts...)
}

// Len reports how many intents are loaded.
func (m *Matcher) Len() int {
	return len(m.intents)
}

// Match returns the best intent for text whose confidence is at least threshold.
// Ties keep the first intent and pattern seen in corpus order.
func (m *Matcher) Match(text string, threshold float64) (Match, bool) {
	input := normalize(text)
	if input == "" {
		return Match{}, false
	}
	inputTokens := tokenSet(input)

	bestIdx := -1
	bestScore := 0.0
	for i, in := range m.intents {
		if len(in.Patterns) == 0 || len(in.Responses) == 0 {
			continue
		}
		floor := m.boostFloor(in.Tag, input)
		for _, pattern := range in.Patterns {
			score := similarity(input, inputTokens, pattern)
			if floor > score {
				score = floor
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
	}

	if bestIdx < 0 || bestScore < threshold {
		slog.Debug("Matcher.Match: no intent above threshold", "best", bestScore, "threshold", threshold)
		return Match{}, false
	}
	best := m.intents[bestIdx]
	return Match{
		Tag:        best.Tag,
		Response:   m.picker.Choice(best.Responses),
		Confidence: bestScore,
		Responses:  best.Responses,
	}, true
}

// ResponseForTag returns a random response from the named intent.
func (m *Matcher) ResponseForTag(tag string) (string, bool) {
	for _, in := range m.intents {
		if in.Tag == tag && len(in.Responses) > 0 {
			return m.picker.Choice(in.Responses), true
		}
	}
	return "", false
}

// boostFloor returns the floor for tag if one of its keywords occurs in the
// normalized input, or 0.
func (m *Matcher) boostFloor(tag, input string) float64 {
	keywords, ok := m.boostKeywords[tag]
	if !ok {
		return 0
	}
	padded := " " + input + " "
	for _, kw := range keywords {
		kw = normalize(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(padded, " "+kw+" ") {
			if m.crisisTags[tag] {
				return m.crisisFloor
			}
			return m.emotionalFloor
		}
	}
	return 0
}

var nonWordRE = regexp.MustCompile(`[^\p{L}\p{N}_\s']+`)

// normalize lowercases, strips punctuation other than apostrophes and collapses whitespace.
func normalize(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "’", "'")
	s = nonWordRE.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// similarity scores normalized input against a raw pattern:
// exact match 1.0, containment of a pattern of 3+ characters 0.9, otherwise Jaccard.
func similarity(input string, inputTokens map[string]struct{}, pattern string) float64 {
	p := normalize(pattern)
	if p == "" {
		return 0
	}
	if input == p {
		return 1.0
	}
	if len(p) >= 3 && strings.Contains(input, p) {
		return 0.9
	}

	patternTokens := tokenSet(p)
	intersection := 0
	for tok := range patternTokens {
		if _, ok := inputTokens[tok]; ok {
			intersection++
		}
	}
	union := len(inputTokens) + len(patternTokens) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// String implements fmt.Stringer for log output.
func (m Match) String() string {
	return fmt.Sprintf("%s(%.2f)", m.Tag, m.Confidence)
}
