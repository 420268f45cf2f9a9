package actions

import (
	"slices"
	"strings"
	"testing"
)

func TestGenerateSubstitutesVariables(t *testing.T) {
	s := Generate("extension_request", "direct", map[string]string{"course": "CSC 225", "deadline": "Friday"})
	if s.Title != "Extension Request Email (Direct)" {
		t.Errorf("unexpected title %q", s.Title)
	}
	if !strings.Contains(s.Script, "CSC 225 assignment due Friday") {
		t.Errorf("variables not substituted:\n%s", s.Script)
	}
	if strings.Contains(s.Script, "{course}") {
		t.Errorf("placeholder left in script")
	}
	if len(s.Checklist) == 0 || len(s.SuggestedNextSteps) != 4 {
		t.Errorf("expected checklist and next steps, got %v / %v", s.Checklist, s.SuggestedNextSteps)
	}
}

func TestGenerateToneFallback(t *testing.T) {
	s := Generate("text_friend", "sarcastic", nil)
	if s.Title != "Reaching Out to a Friend (Gentle)" {
		t.Errorf("expected gentle fallback, got %q", s.Title)
	}
}

func TestGenerateUnknownScenario(t *testing.T) {
	s := Generate("resign_from_club", "warm", nil)
	if s.Title != NotFoundTitle {
		t.Errorf("expected %q, got %q", NotFoundTitle, s.Title)
	}
	if s.Checklist == nil || len(s.Checklist) != 0 || len(s.SuggestedNextSteps) != 0 {
		t.Errorf("expected empty lists")
	}
}

func TestEveryScenarioHasEveryTone(t *testing.T) {
	lib := DefaultLibrary()
	if want := []string{"extension_request", "text_friend", "self_advocacy"}; !slices.Equal(lib.ScenarioIDs(), want) {
		t.Errorf("expected scenarios %v, got %v", want, lib.ScenarioIDs())
	}
	for _, id := range lib.ScenarioIDs() {
		for _, tone := range lib.Tones {
			s := lib.Generate(id, tone, nil)
			if !strings.HasSuffix(strings.ToLower(s.Title), "("+tone+")") {
				t.Errorf("%s/%s: got title %q", id, tone, s.Title)
			}
		}
	}
}

func TestGenerateDoesNotShareSlices(t *testing.T) {
	a := Generate("self_advocacy", "warm", nil)
	a.Checklist[0] = "changed"
	b := Generate("self_advocacy", "warm", nil)
	if b.Checklist[0] == "changed" {
		t.Errorf("checklist must be copied")
	}
}

func TestParseLibraryRequiresGentle(t *testing.T) {
	raw := []byte("scenarios:\n  - id: x\n    tones:\n      warm: {title: t, script: s}\n")
	if _, err := ParseLibrary(raw); err == nil {
		t.Errorf("expected error for scenario without gentle tone")
	}
}
