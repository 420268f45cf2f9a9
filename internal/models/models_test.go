package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAPIResponseBuilders(t *testing.T) {
	ok := Success(map[string]int{"n": 1})
	if ok.Status != string(APIStatusOK) || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}
	e := Error("boom")
	if e.Status != string(APIStatusError) || e.Message != "boom" || e.Result != nil {
		t.Errorf("unexpected error response: %+v", e)
	}
	r := Recorded("x")
	if r.Status != string(APIStatusRecorded) || r.Result != "x" {
		t.Errorf("unexpected recorded response: %+v", r)
	}
}

func TestStageTransitions(t *testing.T) {
	if StageVent.Next() != StageTriage || StageTriage.Next() != StagePlan || StagePlan.Next() != StagePlan {
		t.Error("stage transitions must advance one step and stop at plan")
	}
	if Stage("done").Valid() {
		t.Error("unknown stage reported valid")
	}
}

func TestPlaybookStateJSON(t *testing.T) {
	in := `{"playbook_id":"anxious","stage":"triage","context":{
		"initial_message":"I can't focus",
		"turns":2,
		"urgent":false,
		"extra":{"note":"exam friday","score":1.5}
	}}`

	var s PlaybookState
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if msg, ok := s.Context.GetString(ContextInitialMessage); !ok || msg != "I can't focus" {
		t.Errorf("unexpected initial_message: %q (ok=%v)", msg, ok)
	}
	if n, ok := s.Context["turns"].AsNumber(); !ok || n != 2 {
		t.Errorf("expected number 2, got %v (ok=%v)", n, ok)
	}
	if b, ok := s.Context["urgent"].AsBool(); !ok || b {
		t.Errorf("expected bool false, got %v (ok=%v)", b, ok)
	}
	nested, ok := s.Context["extra"].AsMap()
	if !ok || nested["note"].Kind() != KindString {
		t.Fatalf("expected nested map, got %+v", nested)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var again PlaybookState
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if !again.Equal(s) {
		t.Errorf("state changed across JSON: %s", out)
	}
}

func TestContextValueRejectsArraysAndNull(t *testing.T) {
	for _, in := range []string{
		`{"stage":"vent","context":{"x":[1,2]}}`,
		`{"stage":"vent","context":{"x":null}}`,
		`{"stage":"vent","context":{"x":{"y":[]}}}`,
	} {
		var s PlaybookState
		err := json.Unmarshal([]byte(in), &s)
		if !errors.Is(err, ErrUnsupportedContextValue) {
			t.Errorf("Unmarshal(%s) error = %v, want ErrUnsupportedContextValue", in, err)
		}
	}
}

func TestPlaybookStateValidate(t *testing.T) {
	bad := PlaybookState{Stage: "later"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("expected ErrInvalidStage, got %v", err)
	}

	wrongKind := PlaybookState{Stage: StageVent, Context: PlaybookContext{ContextInitialMessage: NumberValue(3)}}
	if err := wrongKind.Validate(); !errors.Is(err, ErrContextKind) {
		t.Errorf("expected ErrContextKind, got %v", err)
	}

	if err := (PlaybookState{}).Validate(); err != nil {
		t.Errorf("empty state should be valid, got %v", err)
	}
}

func TestPlaybookStateCloneIsDeep(t *testing.T) {
	s := NewPlaybookState()
	s.Context["extra"] = MapValue(map[string]ContextValue{"a": StringValue("1")})

	c := s.Clone()
	c.Context[ContextInitialMessage] = StringValue("changed")
	if _, ok := s.Context[ContextInitialMessage]; ok {
		t.Error("clone shares its context map with the original")
	}
	if !c.Clone().Equal(c) {
		t.Error("clone of clone should be equal")
	}
}

func TestWellnessRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"valid mood", (&MoodEntryRequest{Mood: MoodLow}).Validate(), nil},
		{"unknown mood", (&MoodEntryRequest{Mood: "meh"}).Validate(), ErrInvalidMood},
		{"long note", (&MoodEntryRequest{Mood: MoodGood, Note: strings.Repeat("x", MaxNoteLength+1)}).Validate(), ErrNoteTooLong},
		{"rating low", (&FeedbackRequest{Rating: 0}).Validate(), ErrInvalidRating},
		{"rating high", (&FeedbackRequest{Rating: 6}).Validate(), ErrInvalidRating},
		{"rating ok", (&FeedbackRequest{Rating: 4}).Validate(), nil},
		{"empty event", (&EventRequest{Type: " "}).Validate(), ErrEmptyEventType},
		{"event ok", (&EventRequest{Type: EventRoutineUsed}).Validate(), nil},
		{"empty message", ValidateMessage("  "), ErrEmptyMessage},
		{"long message", ValidateMessage(strings.Repeat("a", MaxMessageLength+1)), ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("got %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func TestNewMoodStats(t *testing.T) {
	stats := NewMoodStats([]MoodEntry{{Mood: MoodLow}, {Mood: MoodLow}, {Mood: MoodGreat}})
	if len(stats) != len(MoodLevels) {
		t.Errorf("expected every mood level present, got %v", stats)
	}
	if stats[MoodLow] != 2 || stats[MoodGreat] != 1 || stats[MoodOkay] != 0 {
		t.Errorf("unexpected counts: %v", stats)
	}
}
