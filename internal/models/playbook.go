package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Stage is a playbook's position in its three-step protocol.
type Stage string

const (
	// StageVent is the initial stage: validate and ask a triage question.
	StageVent Stage = "vent"
	// StageTriage follows up on the first answer.
	StageTriage Stage = "triage"
	// StagePlan is the steady state; re-entering it stays in it.
	StagePlan Stage = "plan"
)

// Valid reports whether s is one of the three stages.
func (s Stage) Valid() bool {
	switch s {
	case StageVent, StageTriage, StagePlan:
		return true
	default:
		return false
	}
}

// Next returns the stage that follows s. Plan is terminal.
func (s Stage) Next() Stage {
	switch s {
	case StageVent:
		return StageTriage
	default:
		return StagePlan
	}
}

// ContextKey names an entry in a playbook context.
type ContextKey string

// Known context keys. Both hold strings.
const (
	// ContextInitialMessage is the message that opened the playbook.
	ContextInitialMessage ContextKey = "initial_message"
	// ContextTriageMessage is the answer given at the triage stage.
	ContextTriageMessage ContextKey = "triage_message"
)

var knownContextKinds = map[ContextKey]ValueKind{
	ContextInitialMessage: KindString,
	ContextTriageMessage:  KindString,
}

// ValueKind tags the variant held by a ContextValue.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

var (
	// ErrUnsupportedContextValue is returned when decoding a JSON array or null into a ContextValue.
	ErrUnsupportedContextValue = errors.New("context values must be a string, number, bool or object")
	// ErrInvalidStage is returned for an unknown stage.
	ErrInvalidStage = errors.New("invalid playbook stage")
	// ErrContextKind is returned when a known context key holds the wrong kind of value.
	ErrContextKind = errors.New("context value has the wrong kind for its key")
)

// ContextValue is a string, number, bool or nested map. The zero value is the empty string.
type ContextValue struct {
	kind ValueKind
	str  string
	num  float64
	flag bool
	m    map[string]ContextValue
}

func StringValue(s string) ContextValue  { return ContextValue{kind: KindString, str: s} }
func NumberValue(n float64) ContextValue { return ContextValue{kind: KindNumber, num: n} }
func BoolValue(b bool) ContextValue      { return ContextValue{kind: KindBool, flag: b} }

// MapValue wraps a nested map. The map is copied.
func MapValue(m map[string]ContextValue) ContextValue {
	return ContextValue{kind: KindMap, m: cloneValueMap(m)}
}

// Kind returns the variant held by v.
func (v ContextValue) Kind() ValueKind { return v.kind }

func (v ContextValue) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v ContextValue) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v ContextValue) AsBool() (bool, bool)      { return v.flag, v.kind == KindBool }

// AsMap returns a copy of the nested map.
func (v ContextValue) AsMap() (map[string]ContextValue, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return cloneValueMap(v.m), true
}

// MarshalJSON implements json.Marshaler.
func (v ContextValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Arrays and null are rejected.
func (v *ContextValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrUnsupportedContextValue
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '{':
		var m map[string]ContextValue
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		if m == nil {
			m = map[string]ContextValue{}
		}
		*v = ContextValue{kind: KindMap, m: m}
	case '[', 'n':
		return ErrUnsupportedContextValue
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

func cloneValueMap(m map[string]ContextValue) map[string]ContextValue {
	if m == nil {
		return nil
	}
	out := make(map[string]ContextValue, len(m))
	for k, v := range m {
		if v.kind == KindMap {
			v.m = cloneValueMap(v.m)
		}
		out[k] = v
	}
	return out
}

// PlaybookContext carries notes from earlier turns of a playbook.
type PlaybookContext map[ContextKey]ContextValue

// Clone returns a deep copy of c. A nil context clones to an empty one.
func (c PlaybookContext) Clone() PlaybookContext {
	out := make(PlaybookContext, len(c))
	for k, v := range c {
		if v.kind == KindMap {
			v.m = cloneValueMap(v.m)
		}
		out[k] = v
	}
	return out
}

// GetString returns the string stored under key.
func (c PlaybookContext) GetString(key ContextKey) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Validate checks that known keys hold the kind of value they expect.
func (c PlaybookContext) Validate() error {
	for key, want := range knownContextKinds {
		if v, ok := c[key]; ok && v.kind != want {
			return fmt.Errorf("%w: %s is %s, want %s", ErrContextKind, key, v.kind, want)
		}
	}
	return nil
}

// PlaybookState is the conversational position for one session. An empty PlaybookID
// means no playbook is bound yet.
type PlaybookState struct {
	PlaybookID string          `json:"playbook_id,omitempty"`
	Stage      Stage           `json:"stage"`
	Context    PlaybookContext `json:"context"`
}

// NewPlaybookState returns the initial state: unbound, at the vent stage.
func NewPlaybookState() PlaybookState {
	return PlaybookState{Stage: StageVent, Context: PlaybookContext{}}
}

// Validate checks the stage and context. An empty stage is accepted and treated as vent.
func (s PlaybookState) Validate() error {
	if s.Stage != "" && !s.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, s.Stage)
	}
	return s.Context.Validate()
}

// Clone returns a deep copy of s.
func (s PlaybookState) Clone() PlaybookState {
	s.Context = s.Context.Clone()
	return s
}

// Equal reports whether two states carry the same id, stage and context keys and values.
func (s PlaybookState) Equal(other PlaybookState) bool {
	if s.PlaybookID != other.PlaybookID || s.Stage != other.Stage {
		return false
	}
	return maps.EqualFunc(s.Context, other.Context, valuesEqual)
}

func valuesEqual(a, b ContextValue) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber:
		return a.num == b.num
	case KindBool:
		return a.flag == b.flag
	case KindMap:
		return maps.EqualFunc(a.m, b.m, valuesEqual)
	default:
		return a.str == b.str
	}
}
