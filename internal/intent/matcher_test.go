package intent

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/BTreeMap/Lantern/data"
	"github.com/BTreeMap/Lantern/internal/util"
)

const testCorpus = `{
  "intents": [
    {"tag": "greeting", "patterns": ["hello", "hi there"], "responses": ["Hey!", "Hi, good to see you."]},
    {"tag": "anxious", "patterns": ["i feel anxious", "i am worried"], "responses": ["That sounds stressful.", "Anxiety is hard."]},
    {"tag": "suicide", "patterns": ["i want to end it"], "responses": ["Please reach out to 988."]},
    {"tag": "empty", "patterns": [], "responses": ["never"]}
  ]
}`

func newTestMatcher(t *testing.T, opts ...Option) *Matcher {
	t.Helper()
	opts = append([]Option{WithPicker(util.NewSeededPicker(1, 2))}, opts...)
	return NewMatcher([]byte(testCorpus), opts...)
}

func TestMatchKeywordBoost(t *testing.T) {
	m := newTestMatcher(t)

	got, ok := m.Match("I'm feeling really anxious today", DefaultThreshold)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Tag != "anxious" {
		t.Errorf("expected tag anxious, got %q", got.Tag)
	}
	if got.Confidence < DefaultEmotionalFloor {
		t.Errorf("expected confidence >= %v, got %v", DefaultEmotionalFloor, got.Confidence)
	}
	if !slices.Contains(got.Responses, got.Response) {
		t.Errorf("response %q not drawn from the intent's pool", got.Response)
	}
}

func TestMatchCrisisBoost(t *testing.T) {
	m := newTestMatcher(t)
	got, ok := m.Match("some days I just want to die", DefaultThreshold)
	if !ok || got.Tag != "suicide" {
		t.Fatalf("expected suicide match, got %+v (ok=%v)", got, ok)
	}
	if got.Confidence != DefaultCrisisFloor {
		t.Errorf("expected crisis floor %v, got %v", DefaultCrisisFloor, got.Confidence)
	}
}

func TestMatchScores(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		name     string
		text     string
		wantTag  string
		wantConf float64
		wantOK   bool
	}{
		{"exact match ignores case and punctuation", "Hello!", "greeting", 1.0, true},
		{"containment", "well hi there friend", "greeting", 0.9, true},
		{"empty input", "   ", "", 0, false},
		{"nothing relevant", "purple elephants dance", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.text, DefaultThreshold)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Tag != tt.wantTag || got.Confidence != tt.wantConf {
				t.Errorf("Match(%q) = %s, want %s(%.2f)", tt.text, got, tt.wantTag, tt.wantConf)
			}
		})
	}
}

func TestMatchThreshold(t *testing.T) {
	// Jaccard of {i, am, so, worried, today} vs {i, am, worried} is 0.6 with boosts disabled.
	m := NewMatcher([]byte(testCorpus), WithBoostKeywords(map[string][]string{}))
	if _, ok := m.Match("i am so worried today", 0.7); ok {
		t.Error("expected no match above 0.7")
	}
	got, ok := m.Match("i am so worried today", 0.5)
	if !ok || got.Tag != "anxious" {
		t.Fatalf("expected anxious at threshold 0.5, got %+v", got)
	}
	if got.Confidence != 0.6 {
		t.Errorf("expected Jaccard 0.6, got %v", got.Confidence)
	}
}

func TestBoostKeywordsMatchWholeWords(t *testing.T) {
	m := newTestMatcher(t)
	// "studied" contains "die" but must not trigger the crisis boost.
	if got, ok := m.Match("I studied all night", DefaultThreshold); ok {
		t.Errorf("expected no match, got %s", got)
	}
}

func TestMatchTieKeepsFirstIntent(t *testing.T) {
	corpus := `{"intents":[
		{"tag":"first","patterns":["same words"],"responses":["a"]},
		{"tag":"second","patterns":["same words"],"responses":["b"]}
	]}`
	m := NewMatcher([]byte(corpus))
	got, ok := m.Match("same words", DefaultThreshold)
	if !ok || got.Tag != "first" {
		t.Errorf("expected first intent to win the tie, got %+v", got)
	}
}

func TestMalformedCorpusIsEmpty(t *testing.T) {
	m := NewMatcher([]byte("{not json"))
	if m.Len() != 0 {
		t.Errorf("expected empty matcher, got %d intents", m.Len())
	}
	if _, ok := m.Match("hello", 0); ok {
		t.Error("empty matcher must never match")
	}
}

func TestNewMatcherFromFile(t *testing.T) {
	missing := NewMatcherFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if missing.Len() != 0 {
		t.Errorf("expected empty matcher for missing file")
	}

	path := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(path, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewMatcherFromFile(path).Len(); got != 4 {
		t.Errorf("expected 4 intents, got %d", got)
	}
}

func TestResponseForTag(t *testing.T) {
	m := newTestMatcher(t)
	resp, ok := m.ResponseForTag("suicide")
	if !ok || resp != "Please reach out to 988." {
		t.Errorf("unexpected response %q (ok=%v)", resp, ok)
	}
	if _, ok := m.ResponseForTag("missing"); ok {
		t.Error("expected no response for unknown tag")
	}
}

func TestEmbeddedCorpus(t *testing.T) {
	m := NewMatcher(data.Intents, WithPicker(util.NewSeededPicker(3, 4)))
	if m.Len() == 0 {
		t.Fatal("embedded corpus should not be empty")
	}
	got, ok := m.Match("I'm feeling really anxious today", DefaultThreshold)
	if !ok || got.Tag != "anxious" || got.Confidence < DefaultEmotionalFloor {
		t.Errorf("unexpected match on embedded corpus: %+v (ok=%v)", got, ok)
	}
}
